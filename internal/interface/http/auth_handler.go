package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/exotic-fruits/auth-service/internal/application"
	"github.com/exotic-fruits/auth-service/internal/interface/middleware"
	"github.com/exotic-fruits/auth-service/pkg/response"
	"github.com/exotic-fruits/auth-service/pkg/validation"
)

type AuthHandler struct {
	Svc    *application.AuthService
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

// Field checks (required, email format, password strength) happen in the
// service so every transport gets the same messages.
type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type sessionData struct {
	User  application.PublicUser `json:"user"`
	Token string                 `json:"token"`
}

// bindJSON decodes the body into dst. An empty body leaves dst zero and is
// reported by the service as missing fields.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return false
	}
	return true
}

// fail writes err with its mapped status. Unverified logins carry the user so
// the client can jump to verification.
func fail(c *gin.Context, err error) {
	var detail any
	var appErr *application.Error
	if errors.As(err, &appErr) && appErr.RequiresVerification {
		detail = gin.H{"requiresVerification": true, "user": appErr.User}
	}
	response.Error[any](c, application.StatusOf(err), application.MessageOf(err), detail)
}

// Signup POST /api/auth/signup {name, email, password}
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Svc.Signup(c.Request.Context(), middleware.RequestMeta(c), req.Name, req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"user":                 res.User,
		"requiresVerification": res.RequiresVerification,
	}, res.Message, nil)
}

// Login POST /api/auth/login {email, password}
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), middleware.RequestMeta(c), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, sessionData{User: res.User, Token: res.Token}, res.Message,
		map[string]any{"expires_at": res.ExpiresAt})
}

// VerifyEmail POST /api/auth/verify-email {email, code}
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Svc.VerifyEmail(c.Request.Context(), middleware.RequestMeta(c), req.Email, req.Code)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, sessionData{User: res.User, Token: res.Token}, res.Message,
		map[string]any{"expires_at": res.ExpiresAt})
}

// ResendVerification POST /api/auth/resend-verification {email}
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req emailRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.Svc.ResendVerification(c.Request.Context(), middleware.RequestMeta(c), req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, msg, nil)
}

// ForgotPassword POST /api/auth/forgot-password {email}
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.Svc.ForgotPassword(c.Request.Context(), middleware.RequestMeta(c), req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, msg, nil)
}

// ResetPassword POST /api/auth/reset-password {token, password}
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.Svc.ResetPassword(c.Request.Context(), middleware.RequestMeta(c), req.Token, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, msg, nil)
}

// Logout POST /api/auth/logout (Authorization: Bearer, optional)
func (h *AuthHandler) Logout(c *gin.Context) {
	msg, err := h.Svc.Logout(c.Request.Context(), middleware.RequestMeta(c), middleware.BearerToken(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, msg, nil)
}
