package security

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/exotic-fruits/auth-service/internal/domain/repository"
)

// Policy is a fixed-window limit applied per client IP for one endpoint.
type Policy struct {
	Endpoint  string
	KeyPrefix string
	Max       int
	Window    time.Duration
}

// Key builds the store key for a client.
func (p Policy) Key(clientIP string) string {
	return p.KeyPrefix + clientIP
}

var (
	LoginPolicy              = Policy{Endpoint: "login", KeyPrefix: "auth_", Max: 5, Window: 15 * time.Minute}
	SignupPolicy             = Policy{Endpoint: "signup", KeyPrefix: "auth_signup_", Max: 3, Window: 15 * time.Minute}
	ForgotPasswordPolicy     = Policy{Endpoint: "forgot-password", KeyPrefix: "forgot_password_", Max: 3, Window: time.Hour}
	ResendVerificationPolicy = Policy{Endpoint: "resend-verification", KeyPrefix: "resend_verification_", Max: 3, Window: 15 * time.Minute}
	VerifyEmailPolicy        = Policy{Endpoint: "verify-email", KeyPrefix: "verify_email_", Max: 5, Window: 15 * time.Minute}
	// ContactPolicy guards the storefront contact form, which calls in
	// through Allow.
	ContactPolicy = Policy{Endpoint: "contact", KeyPrefix: "contact_", Max: 3, Window: time.Hour}
	DebugPolicy   = Policy{Endpoint: "debug", KeyPrefix: "debug_", Max: 120, Window: time.Minute}
)

// RateLimiter applies fixed-window limits on top of a RateLimitStore.
type RateLimiter struct {
	store  repository.RateLimitStore
	logger *logrus.Logger
}

func NewRateLimiter(store repository.RateLimitStore, logger *logrus.Logger) *RateLimiter {
	return &RateLimiter{store: store, logger: logger}
}

// CheckAndConsume reports whether another call under key fits in the current
// window. Store failures fail open.
func (l *RateLimiter) CheckAndConsume(ctx context.Context, key string, max int, window time.Duration) bool {
	ok, err := l.store.Consume(ctx, key, max, window)
	if err != nil {
		if l.logger != nil {
			l.logger.WithError(err).WithField("key", key).Warn("rate limit store failed; allowing request")
		}
		return true
	}
	return ok
}

// Allow applies p to clientIP.
func (l *RateLimiter) Allow(ctx context.Context, p Policy, clientIP string) bool {
	return l.CheckAndConsume(ctx, p.Key(clientIP), p.Max, p.Window)
}
