// Package ratelimit throttles login attempts per client with a Redis sliding
// window.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/numo-systems/numo-admin/gateway/internal/metrics"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

const keyPrefix = "numo:ratelimit:login:"

// slidingWindow trims entries older than the window, then admits the call
// if fewer than limit remain.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, 0, window_start)

	local current = redis.call('ZCARD', key)
	if current < limit then
		redis.call('ZADD', key, now, member)
		redis.call('EXPIRE', key, ttl)
		return 1
	end
	return 0
`)

type RedisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: int64(limit), window: window, now: time.Now}
}

// Allow records an attempt for key and reports whether it is within the
// limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.now().UnixNano()
	windowStart := now - l.window.Nanoseconds()
	ttl := int64(l.window.Seconds()) + 1

	result, err := slidingWindow.Run(ctx, l.client, []string{keyPrefix + key},
		now, windowStart, l.limit, ttl, strconv.FormatInt(now, 10)+"-"+uuid.NewString(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	allowed := result == 1
	if !allowed {
		metrics.RateLimitHits.Inc()
	}
	return allowed, nil
}

// NoOpLimiter always allows requests (when Redis is not configured or the
// limiter is disabled).
type NoOpLimiter struct{}

func (NoOpLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return true, nil
}
