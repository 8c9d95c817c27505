package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// Geo save lookup result
type Geo struct {
	City    string
	Region  string // state/province
	Country string
}

type GeoResolver interface {
	Lookup(ctx context.Context, ip string) (Geo, error)
}

func FormatGeo(g Geo) string {
	var parts []string
	for _, s := range []string{g.City, g.Region, g.Country} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// Routable reports whether ip is worth resolving: private, loopback and
// unparsable addresses never are.
func Routable(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return false
	}
	return !parsed.IsPrivate() && !parsed.IsLoopback() && !parsed.IsUnspecified()
}

const defaultIPAPIEndpoint = "http://ip-api.com/json/"

// IPAPIResolver implements GeoResolver using ip-api.com
type IPAPIResolver struct {
	Client   *http.Client
	Endpoint string // defaults to the public ip-api.com endpoint
}

func (r IPAPIResolver) Lookup(ctx context.Context, ip string) (Geo, error) {
	ip = strings.TrimSpace(ip)
	if !Routable(ip) {
		return Geo{}, fmt.Errorf("ip %q is not routable", ip)
	}
	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}
	endpoint := r.Endpoint
	if endpoint == "" {
		endpoint = defaultIPAPIEndpoint
	}

	u := endpoint + ip + "?fields=status,message,country,regionName,city"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Geo{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Geo{}, err
	}
	defer resp.Body.Close()

	var body struct {
		Status     string `json:"status"`
		Message    string `json:"message"`
		Country    string `json:"country"`
		RegionName string `json:"regionName"`
		City       string `json:"city"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Geo{}, err
	}
	if strings.ToLower(body.Status) != "success" {
		return Geo{}, fmt.Errorf("geo lookup failed: %s", body.Message)
	}
	return Geo{City: body.City, Region: body.RegionName, Country: body.Country}, nil
}
