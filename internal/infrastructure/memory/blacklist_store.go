package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/exotic-fruits/auth-service/internal/domain/repository"
)

const (
	DefaultBlacklistMax   = 1000
	DefaultBlacklistEvict = 500
)

type revoked struct {
	token     string
	expiresAt time.Time
}

// BlacklistStore is an insertion-ordered revocation set. Entries leave the set
// at their token's natural expiry; when the set still exceeds max, the evict
// oldest entries are dropped.
type BlacklistStore struct {
	mu    sync.Mutex
	order *list.List
	index map[string]*list.Element
	max   int
	evict int
	now   func() time.Time
}

func NewBlacklistStore(max, evict int, now func() time.Time) *BlacklistStore {
	if max <= 0 {
		max = DefaultBlacklistMax
	}
	if evict <= 0 || evict > max {
		evict = DefaultBlacklistEvict
	}
	if now == nil {
		now = time.Now
	}
	return &BlacklistStore{
		order: list.New(),
		index: make(map[string]*list.Element),
		max:   max,
		evict: evict,
		now:   now,
	}
}

func (s *BlacklistStore) Add(_ context.Context, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.index[token]; ok {
		el.Value.(*revoked).expiresAt = expiresAt
		return nil
	}
	s.index[token] = s.order.PushBack(&revoked{token: token, expiresAt: expiresAt})

	if s.order.Len() > s.max {
		s.dropExpired(s.now())
	}
	if s.order.Len() > s.max {
		for i := 0; i < s.evict && s.order.Len() > 0; i++ {
			s.remove(s.order.Front())
		}
	}
	return nil
}

func (s *BlacklistStore) Has(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.index[token]
	if !ok {
		return false, nil
	}
	if !s.now().Before(el.Value.(*revoked).expiresAt) {
		s.remove(el)
		return false, nil
	}
	return true, nil
}

func (s *BlacklistStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len(), nil
}

func (s *BlacklistStore) dropExpired(now time.Time) {
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		if !now.Before(el.Value.(*revoked).expiresAt) {
			s.remove(el)
		}
		el = next
	}
}

func (s *BlacklistStore) remove(el *list.Element) {
	delete(s.index, el.Value.(*revoked).token)
	s.order.Remove(el)
}

var _ repository.BlacklistStore = (*BlacklistStore)(nil)
