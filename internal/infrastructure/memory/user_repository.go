package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/exotic-fruits/auth-service/internal/domain/entity"
	"github.com/exotic-fruits/auth-service/internal/domain/repository"
)

// UserRepository is an in-process credential store used for local runs and
// tests. It hands out copies so callers never alias stored records.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*entity.User
	byEmail map[string]string
	now     func() time.Time
}

func NewUserRepository(now func() time.Time) *UserRepository {
	if now == nil {
		now = time.Now
	}
	return &UserRepository{
		byID:    make(map[string]*entity.User),
		byEmail: make(map[string]string),
		now:     now,
	}
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[u.Email]; exists {
		return repository.ErrEmailTaken
	}
	now := r.now()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.byID[u.ID] = clone(u)
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *UserRepository) GetByResetToken(_ context.Context, tokenHash string, now time.Time) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if tokenHash == "" {
		return nil, repository.ErrNotFound
	}
	for _, u := range r.byID {
		if u.ResetTokenHash == tokenHash && u.ResetExpires != nil && u.ResetExpires.After(now) {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Email != u.Email {
		if _, taken := r.byEmail[u.Email]; taken {
			return repository.ErrEmailTaken
		}
		delete(r.byEmail, cur.Email)
		r.byEmail[u.Email] = u.ID
	}
	u.UpdatedAt = r.now()
	r.byID[u.ID] = clone(u)
	return nil
}

func (r *UserRepository) SetVerificationCode(_ context.Context, id, code string, sentAt, expires time.Time) error {
	return r.mutate(id, func(u *entity.User) {
		u.VerificationCode = code
		u.VerificationExpires = &expires
		u.VerificationSentAt = &sentAt
		u.VerificationAttempts = 0
	})
}

func (r *UserRepository) IncrementVerificationAttempts(_ context.Context, id string) (int, error) {
	var n int
	err := r.mutate(id, func(u *entity.User) {
		u.VerificationAttempts++
		n = u.VerificationAttempts
	})
	return n, err
}

func (r *UserRepository) MarkEmailVerified(_ context.Context, id string) error {
	return r.mutate(id, func(u *entity.User) {
		u.IsVerified = true
		u.VerificationCode = ""
		u.VerificationExpires = nil
		u.VerificationSentAt = nil
		u.VerificationAttempts = 0
	})
}

func (r *UserRepository) SetResetToken(_ context.Context, id, tokenHash string, expires time.Time) error {
	return r.mutate(id, func(u *entity.User) {
		u.ResetTokenHash = tokenHash
		u.ResetExpires = &expires
	})
}

func (r *UserRepository) ResetPassword(_ context.Context, id, tokenHash, passwordHash string, now time.Time) error {
	return r.mutateIf(id, func(u *entity.User) bool {
		return tokenHash != "" && u.ResetTokenHash == tokenHash && u.ResetExpires != nil && u.ResetExpires.After(now)
	}, func(u *entity.User) {
		u.Password = passwordHash
		u.ResetTokenHash = ""
		u.ResetExpires = nil
	})
}

func (r *UserRepository) mutate(id string, fn func(u *entity.User)) error {
	return r.mutateIf(id, nil, fn)
}

// mutateIf applies fn under the write lock when cond (if any) holds for the
// stored record, and reports ErrNotFound otherwise.
func (r *UserRepository) mutateIf(id string, cond func(u *entity.User) bool, fn func(u *entity.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok || (cond != nil && !cond(u)) {
		return repository.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = r.now()
	return nil
}

func clone(u *entity.User) *entity.User {
	c := *u
	c.VerificationExpires = cloneTime(u.VerificationExpires)
	c.VerificationSentAt = cloneTime(u.VerificationSentAt)
	c.ResetExpires = cloneTime(u.ResetExpires)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

var _ repository.UserRepository = (*UserRepository)(nil)
