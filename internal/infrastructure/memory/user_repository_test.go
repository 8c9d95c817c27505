package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exotic-fruits/auth-service/internal/domain/entity"
	"github.com/exotic-fruits/auth-service/internal/domain/repository"
)

func TestUserRepositoryCreateAndLookup(t *testing.T) {
	r := NewUserRepository(newFakeClock().Now)
	ctx := context.Background()

	u := &entity.User{Email: "jane@x.com", Name: "Jane", Password: "hash"}
	require.NoError(t, r.Create(ctx, u))
	require.NotEmpty(t, u.ID)

	byEmail, err := r.GetByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", byID.Name)

	_, err = r.GetByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepositoryUniqueEmailUnderRace(t *testing.T) {
	r := NewUserRepository(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.Create(ctx, &entity.User{Email: "dup@x.com", Name: "D", Password: "h"})
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, repository.ErrEmailTaken)
	}
	assert.Equal(t, 1, created)
}

func TestUserRepositoryVerificationLifecycle(t *testing.T) {
	clock := newFakeClock()
	r := NewUserRepository(clock.Now)
	ctx := context.Background()

	u := &entity.User{Email: "jane@x.com", Name: "Jane", Password: "hash"}
	require.NoError(t, r.Create(ctx, u))
	require.NoError(t, r.SetVerificationCode(ctx, u.ID, "123456", clock.Now(), clock.Now().Add(15*time.Minute)))

	n, err := r.IncrementVerificationAttempts(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, r.MarkEmailVerified(ctx, u.ID))
	got, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	assert.False(t, got.HasPendingVerification())
	assert.Zero(t, got.VerificationAttempts)
}

func TestUserRepositoryResetTokenSingleUse(t *testing.T) {
	clock := newFakeClock()
	r := NewUserRepository(clock.Now)
	ctx := context.Background()

	u := &entity.User{Email: "jane@x.com", Name: "Jane", Password: "old"}
	require.NoError(t, r.Create(ctx, u))
	require.NoError(t, r.SetResetToken(ctx, u.ID, "digest", clock.Now().Add(time.Hour)))

	found, err := r.GetByResetToken(ctx, "digest", clock.Now())
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = r.GetByResetToken(ctx, "digest", clock.Now().Add(2*time.Hour))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.ErrorIs(t, r.ResetPassword(ctx, u.ID, "other", "new", clock.Now()), repository.ErrNotFound)
	assert.ErrorIs(t, r.ResetPassword(ctx, u.ID, "digest", "new", clock.Now().Add(2*time.Hour)), repository.ErrNotFound)

	require.NoError(t, r.ResetPassword(ctx, u.ID, "digest", "new", clock.Now()))
	_, err = r.GetByResetToken(ctx, "digest", clock.Now())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, r.ResetPassword(ctx, u.ID, "digest", "newer", clock.Now()), repository.ErrNotFound)

	got, _ := r.GetByID(ctx, u.ID)
	assert.Equal(t, "new", got.Password)
}

func TestUserRepositoryResetTokenConcurrentConsumers(t *testing.T) {
	clock := newFakeClock()
	r := NewUserRepository(clock.Now)
	ctx := context.Background()

	u := &entity.User{Email: "jane@x.com", Name: "Jane", Password: "old"}
	require.NoError(t, r.Create(ctx, u))
	require.NoError(t, r.SetResetToken(ctx, u.ID, "digest", clock.Now().Add(time.Hour)))

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.ResetPassword(ctx, u.ID, "digest", "new", clock.Now())
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, repository.ErrNotFound)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestUserRepositoryReturnsCopies(t *testing.T) {
	r := NewUserRepository(nil)
	ctx := context.Background()
	u := &entity.User{Email: "jane@x.com", Name: "Jane", Password: "hash"}
	require.NoError(t, r.Create(ctx, u))

	got, _ := r.GetByID(ctx, u.ID)
	got.Name = "Mallory"
	again, _ := r.GetByID(ctx, u.ID)
	assert.Equal(t, "Jane", again.Name)
}

func TestUserRepositoryUpdate(t *testing.T) {
	r := NewUserRepository(nil)
	ctx := context.Background()
	jane := &entity.User{Email: "jane@x.com", Name: "Jane", Password: "hash"}
	bob := &entity.User{Email: "bob@x.com", Name: "Bob", Password: "hash"}
	require.NoError(t, r.Create(ctx, jane))
	require.NoError(t, r.Create(ctx, bob))

	jane.Name = "Jane Doe"
	jane.Email = "jane.doe@x.com"
	require.NoError(t, r.Update(ctx, jane))

	got, err := r.GetByEmail(ctx, "jane.doe@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.Name)
	_, err = r.GetByEmail(ctx, "jane@x.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	bob.Email = "jane.doe@x.com"
	assert.ErrorIs(t, r.Update(ctx, bob), repository.ErrEmailTaken)

	ghost := &entity.User{ID: "missing", Email: "ghost@x.com"}
	assert.ErrorIs(t, r.Update(ctx, ghost), repository.ErrNotFound)
}
