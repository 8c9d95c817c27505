package security

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/exotic-fruits/auth-service/internal/domain/entity"
	"github.com/exotic-fruits/auth-service/internal/domain/repository"
)

// DefaultAuditRetention is the number of entries kept in memory.
const DefaultAuditRetention = 1000

// Audit actions.
const (
	ActionSignupSuccess                 = "SIGNUP_SUCCESS"
	ActionSignupFailed                  = "SIGNUP_FAILED"
	ActionSignupEmailFailed             = "SIGNUP_EMAIL_FAILED"
	ActionLoginSuccess                  = "LOGIN_SUCCESS"
	ActionLoginFailed                   = "LOGIN_FAILED"
	ActionAccountLockout                = "ACCOUNT_LOCKOUT"
	ActionRateLimitExceeded             = "RATE_LIMIT_EXCEEDED"
	ActionEmailVerificationFailed       = "EMAIL_VERIFICATION_FAILED"
	ActionEmailVerificationBlocked      = "EMAIL_VERIFICATION_BLOCKED"
	ActionEmailVerifiedSuccess          = "EMAIL_VERIFIED_SUCCESS"
	ActionResendVerificationFailed      = "RESEND_VERIFICATION_FAILED"
	ActionResendVerificationEmailFailed = "RESEND_VERIFICATION_EMAIL_FAILED"
	ActionResendVerificationSuccess     = "RESEND_VERIFICATION_SUCCESS"
	ActionForgotPasswordAttempt         = "FORGOT_PASSWORD_ATTEMPT"
	ActionForgotPasswordEmailFailed     = "FORGOT_PASSWORD_EMAIL_FAILED"
	ActionForgotPasswordSuccess         = "FORGOT_PASSWORD_SUCCESS"
	ActionResetPasswordInvalidToken     = "RESET_PASSWORD_INVALID_TOKEN"
	ActionResetPasswordSuccess          = "RESET_PASSWORD_SUCCESS"
	ActionLogoutSuccess                 = "LOGOUT_SUCCESS"
	ActionBlacklistedTokenAccess        = "BLACKLISTED_TOKEN_ACCESS"
	ActionInvalidTokenAccess            = "INVALID_TOKEN_ACCESS"
	ActionUserNotFound                  = "USER_NOT_FOUND"
	ActionUserProfileAccess             = "USER_PROFILE_ACCESS"
)

// AuditLogger keeps the most recent entries in a ring buffer and forwards
// each one to the configured sinks.
type AuditLogger struct {
	mu     sync.RWMutex
	buf    []entity.AuditEntry
	next   int
	full   bool
	sinks  []repository.AuditSink
	logger *logrus.Logger
	now    func() time.Time
}

func NewAuditLogger(retention int, logger *logrus.Logger, now func() time.Time, sinks ...repository.AuditSink) *AuditLogger {
	if retention <= 0 {
		retention = DefaultAuditRetention
	}
	if now == nil {
		now = time.Now
	}
	return &AuditLogger{
		buf:    make([]entity.AuditEntry, retention),
		sinks:  sinks,
		logger: logger,
		now:    now,
	}
}

// Log stamps e with the current time and appends it, dropping the oldest
// entry once retention is reached.
func (a *AuditLogger) Log(ctx context.Context, e entity.AuditEntry) {
	e.Timestamp = a.now()

	a.mu.Lock()
	a.buf[a.next] = e
	a.next = (a.next + 1) % len(a.buf)
	if a.next == 0 {
		a.full = true
	}
	a.mu.Unlock()

	if a.logger != nil {
		a.logger.WithFields(logrus.Fields{
			"audit":      true,
			"action":     e.Action,
			"user_id":    e.UserID,
			"ip":         e.IP,
			"user_agent": e.UserAgent,
			"details":    e.Details,
		}).Info("audit")
	}
	for _, s := range a.sinks {
		if err := s.Write(ctx, e); err != nil && a.logger != nil {
			a.logger.WithError(err).WithField("action", e.Action).Warn("audit sink write failed")
		}
	}
}

// Entries returns every retained entry, oldest first.
func (a *AuditLogger) Entries() []entity.AuditEntry {
	return a.filter(func(entity.AuditEntry) bool { return true })
}

func (a *AuditLogger) ByUser(userID string) []entity.AuditEntry {
	return a.filter(func(e entity.AuditEntry) bool { return e.UserID == userID })
}

func (a *AuditLogger) ByAction(action string) []entity.AuditEntry {
	return a.filter(func(e entity.AuditEntry) bool { return e.Action == action })
}

func (a *AuditLogger) filter(keep func(entity.AuditEntry) bool) []entity.AuditEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]entity.AuditEntry, 0)
	appendFrom := func(entries []entity.AuditEntry) {
		for _, e := range entries {
			if keep(e) {
				out = append(out, e)
			}
		}
	}
	if a.full {
		appendFrom(a.buf[a.next:])
	}
	appendFrom(a.buf[:a.next])
	return out
}
