package security

import (
	"context"
	"errors"
	"time"

	"github.com/exotic-fruits/auth-service/internal/domain/entity"
	"github.com/exotic-fruits/auth-service/internal/domain/repository"
)

var errStoreDown = errors.New("store unreachable")

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type brokenRateStore struct{}

func (brokenRateStore) Consume(context.Context, string, int, time.Duration) (bool, error) {
	return false, errStoreDown
}

type brokenLockoutStore struct{ calls int }

func (s *brokenLockoutStore) Get(context.Context, string) (repository.LockoutEntry, bool, error) {
	s.calls++
	return repository.LockoutEntry{}, false, errStoreDown
}

func (s *brokenLockoutStore) RecordFailure(context.Context, string, time.Time, int, time.Duration) (repository.LockoutEntry, error) {
	s.calls++
	return repository.LockoutEntry{}, errStoreDown
}

func (s *brokenLockoutStore) Clear(context.Context, string) error {
	s.calls++
	return errStoreDown
}

type brokenBlacklistStore struct{}

func (brokenBlacklistStore) Add(context.Context, string, time.Time) error { return errStoreDown }
func (brokenBlacklistStore) Has(context.Context, string) (bool, error)    { return false, errStoreDown }
func (brokenBlacklistStore) Len(context.Context) (int, error)             { return 0, errStoreDown }

type recordingSink struct {
	entries []entity.AuditEntry
	err     error
}

func (s *recordingSink) Write(_ context.Context, e entity.AuditEntry) error {
	s.entries = append(s.entries, e)
	return s.err
}
