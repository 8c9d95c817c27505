package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/exotic-fruits/auth-service/internal/interface/http"
)

// AuthModule registers the public auth endpoints. Per-endpoint rate limits
// and lockout are enforced by the service, so no limiter sits in front.
type AuthModule struct {
	Handler *handlers.AuthHandler
}

func NewAuthModule(h *handlers.AuthHandler) *AuthModule {
	return &AuthModule{Handler: h}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	auth.POST("/signup", m.Handler.Signup)
	auth.POST("/login", m.Handler.Login)
	auth.POST("/verify-email", m.Handler.VerifyEmail)
	auth.POST("/resend-verification", m.Handler.ResendVerification)
	auth.POST("/forgot-password", m.Handler.ForgotPassword)
	auth.POST("/reset-password", m.Handler.ResetPassword)
	auth.POST("/logout", m.Handler.Logout)
}
