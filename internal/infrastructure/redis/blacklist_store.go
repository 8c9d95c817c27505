package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/exotic-fruits/auth-service/internal/domain/repository"
)

const blacklistPrefix = "blacklist:"

// BlacklistStore keeps revoked tokens as keys that expire together with the
// token. Keys hold the token digest, never the token itself.
type BlacklistStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewBlacklistStore(rdb *redis.Client, now func() time.Time) *BlacklistStore {
	if now == nil {
		now = time.Now
	}
	return &BlacklistStore{rdb: rdb, now: now}
}

func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return blacklistPrefix + hex.EncodeToString(sum[:])
}

func (s *BlacklistStore) Add(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, blacklistKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist add: %w", err)
	}
	return nil
}

func (s *BlacklistStore) Has(ctx context.Context, token string) (bool, error) {
	n, err := s.rdb.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("blacklist lookup: %w", err)
	}
	return n == 1, nil
}

// Len counts live entries with SCAN; it is meant for the debug endpoint only.
func (s *BlacklistStore) Len(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, blacklistPrefix+"*", 500).Result()
		if err != nil {
			return 0, fmt.Errorf("blacklist scan: %w", err)
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

var _ repository.BlacklistStore = (*BlacklistStore)(nil)
