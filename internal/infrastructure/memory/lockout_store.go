package memory

import (
	"context"
	"sync"
	"time"

	"github.com/exotic-fruits/auth-service/internal/domain/repository"
)

// LockoutStore keeps failed-login counters in process memory. Entries are
// created on the first failure and deleted on a successful login.
type LockoutStore struct {
	mu      sync.Mutex
	entries map[string]repository.LockoutEntry
}

func NewLockoutStore() *LockoutStore {
	return &LockoutStore{entries: make(map[string]repository.LockoutEntry)}
}

func (s *LockoutStore) Get(_ context.Context, email string) (repository.LockoutEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[email]
	return e, ok, nil
}

func (s *LockoutStore) RecordFailure(_ context.Context, email string, now time.Time, threshold int, lockFor time.Duration) (repository.LockoutEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[email]
	e.FailedCount++
	e.LastAttemptAt = now
	if e.FailedCount >= threshold {
		e.LockedUntil = now.Add(lockFor)
	}
	s.entries[email] = e
	return e, nil
}

func (s *LockoutStore) Clear(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, email)
	return nil
}

var _ repository.LockoutStore = (*LockoutStore)(nil)
