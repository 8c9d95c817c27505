package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/exotic-fruits/auth-service/internal/domain/repository"
)

const (
	lockoutPrefix = "lockout:"
	// lockoutStateTTL bounds how long a failure count survives without new
	// attempts. It is always longer than any lock.
	lockoutStateTTL = 24 * time.Hour
)

var recordFailureScript = redis.NewScript(`
local n = redis.call("HINCRBY", KEYS[1], "count", 1)
redis.call("HSET", KEYS[1], "last", ARGV[1])
if n >= tonumber(ARGV[2]) then
  redis.call("HSET", KEYS[1], "locked_until", ARGV[3])
end
redis.call("PEXPIRE", KEYS[1], ARGV[4])
return n
`)

// LockoutStore keeps per-account failure counters in a Redis hash.
type LockoutStore struct {
	rdb *redis.Client
}

func NewLockoutStore(rdb *redis.Client) *LockoutStore {
	return &LockoutStore{rdb: rdb}
}

func (s *LockoutStore) Get(ctx context.Context, email string) (repository.LockoutEntry, bool, error) {
	data, err := s.rdb.HGetAll(ctx, lockoutPrefix+email).Result()
	if err != nil {
		return repository.LockoutEntry{}, false, fmt.Errorf("lockout get: %w", err)
	}
	if len(data) == 0 {
		return repository.LockoutEntry{}, false, nil
	}
	var e repository.LockoutEntry
	e.FailedCount, _ = strconv.Atoi(data["count"])
	e.LastAttemptAt = parseMillis(data["last"])
	e.LockedUntil = parseMillis(data["locked_until"])
	return e, true, nil
}

func (s *LockoutStore) RecordFailure(ctx context.Context, email string, now time.Time, threshold int, lockFor time.Duration) (repository.LockoutEntry, error) {
	lockedUntil := now.Add(lockFor)
	ttl := lockoutStateTTL
	if lockFor > ttl {
		ttl = lockFor
	}
	n, err := recordFailureScript.Run(ctx, s.rdb, []string{lockoutPrefix + email},
		now.UnixMilli(), threshold, lockedUntil.UnixMilli(), ttl.Milliseconds()).Int()
	if err != nil {
		return repository.LockoutEntry{}, fmt.Errorf("lockout record: %w", err)
	}
	e := repository.LockoutEntry{FailedCount: n, LastAttemptAt: now}
	if n >= threshold {
		e.LockedUntil = lockedUntil
	}
	return e, nil
}

func (s *LockoutStore) Clear(ctx context.Context, email string) error {
	if err := s.rdb.Del(ctx, lockoutPrefix+email).Err(); err != nil {
		return fmt.Errorf("lockout clear: %w", err)
	}
	return nil
}

func parseMillis(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

var _ repository.LockoutStore = (*LockoutStore)(nil)
