package security

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/exotic-fruits/auth-service/internal/domain/repository"
)

const (
	LockoutThreshold = 5
	LockoutDuration  = 15 * time.Minute
)

// LockoutTracker locks an account after repeated failed logins. State lives in
// the injected store; with the memory store a restart clears every lockout.
type LockoutTracker struct {
	store  repository.LockoutStore
	logger *logrus.Logger
	now    func() time.Time
}

func NewLockoutTracker(store repository.LockoutStore, logger *logrus.Logger, now func() time.Time) *LockoutTracker {
	if now == nil {
		now = time.Now
	}
	return &LockoutTracker{store: store, logger: logger, now: now}
}

// Check returns the remaining lock time when email is locked.
func (t *LockoutTracker) Check(ctx context.Context, email string) (time.Duration, bool) {
	e, found, err := t.store.Get(ctx, email)
	if err != nil {
		t.warn(err, email, "lockout lookup failed; treating account as unlocked")
		return 0, false
	}
	now := t.now()
	if !found || !e.Locked(now) {
		return 0, false
	}
	return e.LockedUntil.Sub(now), true
}

// RecordFailure counts a failed login and returns the new count.
func (t *LockoutTracker) RecordFailure(ctx context.Context, email string) int {
	e, err := t.store.RecordFailure(ctx, email, t.now(), LockoutThreshold, LockoutDuration)
	if err != nil {
		t.warn(err, email, "lockout record failed")
		return 0
	}
	return e.FailedCount
}

// Reset drops all failed-attempt state for email.
func (t *LockoutTracker) Reset(ctx context.Context, email string) {
	if err := t.store.Clear(ctx, email); err != nil {
		t.warn(err, email, "lockout clear failed")
	}
}

func (t *LockoutTracker) warn(err error, email, msg string) {
	if t.logger != nil {
		t.logger.WithError(err).WithField("email", email).Warn(msg)
	}
}

// RemainingMinutes rounds d up to whole minutes.
func RemainingMinutes(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}
