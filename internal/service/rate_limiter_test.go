package service

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRedis connects to a local Redis (DB 15) and skips when none answers.
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	opts, err := redis.ParseURL("redis://localhost:6379/15")
	require.NoError(t, err)

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skip("Redis not available for testing")
	}
	client.FlushDB(context.Background())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRateLimiter_Basic(t *testing.T) {
	client := testRedis(t)
	ctx := context.Background()
	limiter := NewRateLimiter(client)

	t.Run("allows requests within limit", func(t *testing.T) {
		key := "test:user1"
		limit := 3
		window := 10 * time.Second

		for i := 0; i < limit; i++ {
			allowed, _ := limiter.CheckLimit(ctx, key, limit, window)
			assert.True(t, allowed, "Request %d should be allowed", i+1)
		}

		allowed, resetAt := limiter.CheckLimit(ctx, key, limit, window)
		assert.False(t, allowed, "Request should be rate limited")
		assert.True(t, resetAt.After(time.Now()), "Reset time should be in future")
	})

	t.Run("different keys are independent", func(t *testing.T) {
		window := 10 * time.Second

		allowed, _ := limiter.CheckLimit(ctx, "test:independent1", 1, window)
		assert.True(t, allowed)
		allowed, _ = limiter.CheckLimit(ctx, "test:independent1", 1, window)
		assert.False(t, allowed)

		allowed, _ = limiter.CheckLimit(ctx, "test:independent2", 1, window)
		assert.True(t, allowed)
	})

	t.Run("per user limit", func(t *testing.T) {
		assert.True(t, limiter.AllowUser(ctx, 42, 2))
		assert.True(t, limiter.AllowUser(ctx, 42, 2))
		assert.False(t, limiter.AllowUser(ctx, 42, 2))
		assert.True(t, limiter.AllowUser(ctx, 43, 2))
	})
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()
	limiter := NewRateLimiter(client)

	allowed, _ := limiter.CheckLimit(context.Background(), "test:down", 1, time.Minute)
	assert.True(t, allowed)
	assert.True(t, limiter.AllowUser(context.Background(), 1, 0), "zero limit disables limiting")
}

func TestUpdateDeduplicator(t *testing.T) {
	client := testRedis(t)
	ctx := context.Background()
	dedup := NewUpdateDeduplicator(client, time.Minute)

	assert.True(t, dedup.FirstSeen(ctx, 1001))
	assert.False(t, dedup.FirstSeen(ctx, 1001))
	assert.True(t, dedup.FirstSeen(ctx, 1002))

	ttl := client.TTL(ctx, "tg:update:1001").Val()
	assert.Greater(t, ttl, time.Duration(0))
}

func TestUpdateDeduplicator_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	dedup := NewUpdateDeduplicator(client, time.Minute)

	assert.True(t, dedup.FirstSeen(context.Background(), 7))
	assert.True(t, dedup.FirstSeen(context.Background(), 7))
}
