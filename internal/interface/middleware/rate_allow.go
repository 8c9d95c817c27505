package middleware

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/exotic-fruits/auth-service/pkg/response"
)

// AllowFunc returns true when the request may skip a guard.
type AllowFunc func(*gin.Context) bool

// AllowPrivateIP admits loopback and private (10/8, 172.16/12, 192.168/16)
// peers. It reads the socket address only; forwarding headers are caller
// controlled and never grant access.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		parsed := net.ParseIP(c.RemoteIP())
		if parsed == nil {
			return false
		}
		return parsed.IsLoopback() || parsed.IsPrivate()
	}
}

// RequireAllowed rejects requests for which allow returns false with 403.
func RequireAllowed(allow AllowFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !allow(c) {
			response.Error[any](c, http.StatusForbidden, "forbidden", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
