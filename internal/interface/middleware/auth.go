package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/exotic-fruits/auth-service/internal/application"
	"github.com/exotic-fruits/auth-service/pkg/response"
)

const (
	CtxUserIDKey    = "userID"
	CtxUserEmailKey = "userEmail"
	CtxUserNameKey  = "userName"
	CtxTokenKey     = "accessToken"
)

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *gin.Context) string {
	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// RequestMeta describes the caller for rate limiting and audit.
func RequestMeta(c *gin.Context) application.RequestMeta {
	return application.RequestMeta{IP: ClientIP(c), UserAgent: c.GetHeader("User-Agent")}
}

// Auth validates the bearer token, rejecting revoked ones, and sets userID,
// userEmail, userName and the raw token in the Gin context on success.
func Auth(svc *application.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		claims, err := svc.Authenticate(c.Request.Context(), RequestMeta(c), token)
		if err != nil {
			response.Error[any](c, application.StatusOf(err), application.MessageOf(err), nil)
			c.Abort()
			return
		}
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxUserEmailKey, claims.Email)
		c.Set(CtxUserNameKey, claims.Name)
		c.Set(CtxTokenKey, token)
		c.Next()
	}
}
