package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestNoOpLimiter(t *testing.T) {
	var l NoOpLimiter
	for i := 0; i < 100; i++ {
		allowed, err := l.Allow(context.Background(), "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestRedisLimiter_EnforcesLimitPerKey(t *testing.T) {
	_, client := setupTestRedis(t)
	l := NewRedisLimiter(client, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed, "attempt %d", i+1)
	}

	allowed, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed, "other clients are unaffected")
}

func TestRedisLimiter_WindowSlides(t *testing.T) {
	_, client := setupTestRedis(t)
	l := NewRedisLimiter(client, 2, time.Minute)
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := l.Allow(ctx, "ip")
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, err := l.Allow(ctx, "ip")
	require.NoError(t, err)
	require.False(t, allowed)

	now = now.Add(61 * time.Second)
	allowed, err = l.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisLimiter_SameInstantCountsTwice(t *testing.T) {
	_, client := setupTestRedis(t)
	l := NewRedisLimiter(client, 1, time.Minute)
	now := time.Now()
	l.now = func() time.Time { return now }

	allowed, err := l.Allow(context.Background(), "ip")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = l.Allow(context.Background(), "ip")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRedisLimiter_BackendDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewRedisLimiter(client, 1, time.Minute)
	mr.Close()

	_, err := l.Allow(context.Background(), "ip")
	assert.Error(t, err)
}
