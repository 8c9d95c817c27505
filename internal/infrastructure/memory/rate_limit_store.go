package memory

import (
	"context"
	"sync"
	"time"

	"github.com/exotic-fruits/auth-service/internal/domain/repository"
)

type window struct {
	count   int
	resetAt time.Time
}

// RateLimitStore keeps fixed-window counters in process memory.
type RateLimitStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewRateLimitStore(now func() time.Time) *RateLimitStore {
	if now == nil {
		now = time.Now
	}
	return &RateLimitStore{windows: make(map[string]*window), now: now}
}

func (s *RateLimitStore) Consume(_ context.Context, key string, max int, win time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		s.windows[key] = &window{count: 1, resetAt: now.Add(win)}
		s.sweep(now)
		return true, nil
	}
	if w.count >= max {
		return false, nil
	}
	w.count++
	return true, nil
}

// sweep drops elapsed windows once the map grows, keeping memory bounded by
// the number of active clients.
func (s *RateLimitStore) sweep(now time.Time) {
	if len(s.windows) < 10000 {
		return
	}
	for k, w := range s.windows {
		if now.After(w.resetAt) {
			delete(s.windows, k)
		}
	}
}

var _ repository.RateLimitStore = (*RateLimitStore)(nil)
