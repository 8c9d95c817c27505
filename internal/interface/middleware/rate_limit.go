package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/exotic-fruits/auth-service/internal/security"
	"github.com/exotic-fruits/auth-service/pkg/response"
)

// RateLimit applies p per client IP in front of a route group. Requests for
// which allow returns true and OPTIONS preflights are not counted.
func RateLimit(limiter *security.RateLimiter, p security.Policy, allow AllowFunc) gin.HandlerFunc {
	if limiter == nil || p.Max <= 0 || p.Window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if allow != nil && allow(c) {
			c.Next()
			return
		}
		if strings.EqualFold(c.Request.Method, http.MethodOptions) {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(p.Max))
		if !limiter.Allow(c.Request.Context(), p, ClientIP(c)) {
			c.Header("Retry-After", strconv.Itoa(int(p.Window.Seconds())))
			response.Error[any](c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
