package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/exotic-fruits/auth-service/internal/application"
	"github.com/exotic-fruits/auth-service/internal/interface/middleware"
	"github.com/exotic-fruits/auth-service/pkg/response"
)

type UserHandler struct {
	Svc *application.AuthService
}

func NewUserHandler(svc *application.AuthService) *UserHandler {
	return &UserHandler{Svc: svc}
}

// Me GET /api/auth/me. Runs behind middleware.Auth.
func (h *UserHandler) Me(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	if uid == "" {
		response.Error[any](c, http.StatusUnauthorized, application.MsgNoToken, nil)
		return
	}
	u, err := h.Svc.Profile(c.Request.Context(), middleware.RequestMeta(c), uid)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": u}, "", nil)
}
