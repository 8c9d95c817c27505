package helpers

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

// ESOptions configures the client behind the audit sink.
type ESOptions struct {
	Addrs    []string
	Username string
	Password string
	// Timeout bounds dialing and waiting for response headers. Audit writes
	// happen inline with auth requests, so it stays short. Default 3s.
	Timeout time.Duration
	// MaxRetries applies to 502/503/504 and connection errors. Default 1.
	MaxRetries int
}

// NewESClient creates an Elasticsearch client with optional basic auth.
func NewESClient(o ESOptions) (*elasticsearch.Client, error) {
	if o.Timeout <= 0 {
		o.Timeout = 3 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 1
	}
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  o.Addrs,
		Username:   o.Username,
		Password:   o.Password,
		MaxRetries: o.MaxRetries,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: o.Timeout,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: o.Timeout}).DialContext,
		},
	})
}

// PingES checks that the cluster answers before audit entries are sent to it.
func PingES(ctx context.Context, client *elasticsearch.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: %s", res.Status())
	}
	return nil
}
