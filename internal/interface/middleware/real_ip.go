package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxRealIPKey = "real_ip"

// UnknownIP stands in for a client address that could not be determined.
const UnknownIP = "unknown"

// RealIP sets the real client IP into Gin context (key: "real_ip").
// Priority:
// 1) CF-Connecting-IP (Cloudflare)
// 2) X-Forwarded-For (left-most)
// 3) X-Real-IP
// 4) fallback to c.ClientIP(), then "unknown"
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxRealIPKey, resolveIP(c))
		c.Next()
	}
}

func resolveIP(c *gin.Context) string {
	if ip := parseIP(c.GetHeader("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := parseIP(first); ip != "" {
			return ip
		}
	}
	if ip := parseIP(c.GetHeader("X-Real-IP")); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return UnknownIP
}

func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}

// ClientIP returns the address resolved by RealIP, or resolves it on the spot
// when RealIP is not installed.
func ClientIP(c *gin.Context) string {
	if ip := c.GetString(ctxRealIPKey); ip != "" {
		return ip
	}
	return resolveIP(c)
}
