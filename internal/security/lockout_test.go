package security

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/exotic-fruits/auth-service/internal/infrastructure/memory"
)

func TestLockoutAfterThreshold(t *testing.T) {
	clock := newFakeClock()
	tr := NewLockoutTracker(memory.NewLockoutStore(), nil, clock.Now)
	ctx := context.Background()

	for i := 1; i < LockoutThreshold; i++ {
		assert.Equal(t, i, tr.RecordFailure(ctx, "jane@x.com"))
		_, locked := tr.Check(ctx, "jane@x.com")
		assert.False(t, locked)
	}
	assert.Equal(t, LockoutThreshold, tr.RecordFailure(ctx, "jane@x.com"))

	remaining, locked := tr.Check(ctx, "jane@x.com")
	assert.True(t, locked)
	assert.Equal(t, LockoutDuration, remaining)
	assert.Equal(t, 15, RemainingMinutes(remaining))

	clock.Advance(LockoutDuration)
	_, locked = tr.Check(ctx, "jane@x.com")
	assert.False(t, locked)
}

func TestLockoutResetClearsCount(t *testing.T) {
	tr := NewLockoutTracker(memory.NewLockoutStore(), nil, newFakeClock().Now)
	ctx := context.Background()

	tr.RecordFailure(ctx, "jane@x.com")
	tr.RecordFailure(ctx, "jane@x.com")
	tr.Reset(ctx, "jane@x.com")
	assert.Equal(t, 1, tr.RecordFailure(ctx, "jane@x.com"))
}

func TestLockoutFailsOpen(t *testing.T) {
	logger, hook := test.NewNullLogger()
	store := &brokenLockoutStore{}
	tr := NewLockoutTracker(store, logger, nil)

	_, locked := tr.Check(context.Background(), "jane@x.com")
	assert.False(t, locked)
	assert.Equal(t, 0, tr.RecordFailure(context.Background(), "jane@x.com"))
	assert.Len(t, hook.AllEntries(), 2)
}

func TestRemainingMinutesRoundsUp(t *testing.T) {
	assert.Equal(t, 1, RemainingMinutes(time.Second))
	assert.Equal(t, 2, RemainingMinutes(61*time.Second))
	assert.Equal(t, 14, RemainingMinutes(14*time.Minute))
}
