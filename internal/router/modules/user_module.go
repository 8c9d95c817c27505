package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/exotic-fruits/auth-service/internal/application"
	handlers "github.com/exotic-fruits/auth-service/internal/interface/http"
	"github.com/exotic-fruits/auth-service/internal/interface/middleware"
)

// UserModule wires the bearer-protected routes.
// Protected: GET /api/auth/me
type UserModule struct {
	Handler *handlers.UserHandler
	Svc     *application.AuthService
}

func NewUserModule(h *handlers.UserHandler, svc *application.AuthService) *UserModule {
	return &UserModule{Handler: h, Svc: svc}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	auth.Use(middleware.Auth(m.Svc))
	{
		auth.GET("/me", m.Handler.Me)
	}
}
