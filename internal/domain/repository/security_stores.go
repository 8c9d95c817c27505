package repository

import (
	"context"
	"time"

	"github.com/exotic-fruits/auth-service/internal/domain/entity"
)

// RateLimitStore holds fixed-window counters keyed by action and client.
type RateLimitStore interface {
	// Consume increments the counter for key when it is below max and reports
	// whether the call was allowed. A rejected call leaves the counter untouched.
	Consume(ctx context.Context, key string, max int, window time.Duration) (bool, error)
}

// LockoutEntry is the failed-login state for one normalized email.
type LockoutEntry struct {
	FailedCount   int
	LastAttemptAt time.Time
	LockedUntil   time.Time
}

// Locked reports whether the entry is locked at now.
func (e LockoutEntry) Locked(now time.Time) bool {
	return !e.LockedUntil.IsZero() && now.Before(e.LockedUntil)
}

// LockoutStore tracks failed login attempts per account.
type LockoutStore interface {
	Get(ctx context.Context, email string) (LockoutEntry, bool, error)
	// RecordFailure increments the counter and, once it reaches threshold, sets
	// LockedUntil to now+lockFor. The increment is atomic per email.
	RecordFailure(ctx context.Context, email string, now time.Time, threshold int, lockFor time.Duration) (LockoutEntry, error)
	Clear(ctx context.Context, email string) error
}

// BlacklistStore is the revocation set for logged-out tokens.
type BlacklistStore interface {
	// Add revokes token until expiresAt.
	Add(ctx context.Context, token string, expiresAt time.Time) error
	Has(ctx context.Context, token string) (bool, error)
	Len(ctx context.Context) (int, error)
}

// AuditSink receives every audit entry after it is appended to the in-process log.
type AuditSink interface {
	Write(ctx context.Context, e entity.AuditEntry) error
}
