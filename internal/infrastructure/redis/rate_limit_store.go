package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/exotic-fruits/auth-service/internal/domain/repository"
)

const rateLimitPrefix = "ratelimit:"

// consumeScript increments KEYS[1] only while it is below ARGV[1]; the first
// hit starts the window with a PEXPIRE of ARGV[2] ms.
var consumeScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current >= tonumber(ARGV[1]) then
  return 0
end
current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 1
`)

// RateLimitStore keeps fixed-window counters in Redis so every instance
// behind the load balancer shares one budget per client.
type RateLimitStore struct {
	rdb *redis.Client
}

func NewRateLimitStore(rdb *redis.Client) *RateLimitStore {
	return &RateLimitStore{rdb: rdb}
}

func (s *RateLimitStore) Consume(ctx context.Context, key string, max int, window time.Duration) (bool, error) {
	res, err := consumeScript.Run(ctx, s.rdb, []string{rateLimitPrefix + key}, max, window.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit consume: %w", err)
	}
	return res == 1, nil
}

var _ repository.RateLimitStore = (*RateLimitStore)(nil)
