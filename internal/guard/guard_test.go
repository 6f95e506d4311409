package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- CircuitBreaker Tests ---

func TestCircuitBreaker(t *testing.T) {
	ctx := context.Background()

	t.Run("opens after threshold", func(t *testing.T) {
		cb := NewCircuitBreaker(3, time.Minute)

		assert.True(t, cb.Check(ctx, "engine").Allowed)
		cb.RecordFailure("engine")
		cb.RecordFailure("engine")
		assert.True(t, cb.Check(ctx, "engine").Allowed, "still under threshold")

		cb.RecordFailure("engine")
		res := cb.Check(ctx, "engine")
		assert.False(t, res.Allowed)
		assert.Equal(t, "circuit_breaker", res.Guard)
	})

	t.Run("success resets failure count", func(t *testing.T) {
		cb := NewCircuitBreaker(3, time.Minute)
		cb.Check(ctx, "engine")
		cb.RecordFailure("engine")
		cb.RecordFailure("engine")
		cb.RecordSuccess("engine")
		cb.RecordFailure("engine")
		cb.RecordFailure("engine")
		assert.True(t, cb.Check(ctx, "engine").Allowed)
	})

	t.Run("half-open after reset timeout", func(t *testing.T) {
		cb := NewCircuitBreaker(1, 10*time.Millisecond)
		cb.Check(ctx, "engine")
		cb.RecordFailure("engine")
		require.False(t, cb.Check(ctx, "engine").Allowed)

		time.Sleep(20 * time.Millisecond)
		assert.True(t, cb.Check(ctx, "engine").Allowed, "one probe allowed")

		cb.RecordSuccess("engine")
		assert.True(t, cb.Check(ctx, "engine").Allowed, "closed again after probe succeeds")
	})

	t.Run("keys are independent", func(t *testing.T) {
		cb := NewCircuitBreaker(1, time.Minute)
		cb.Check(ctx, "analyze")
		cb.RecordFailure("analyze")
		assert.False(t, cb.Check(ctx, "analyze").Allowed)
		assert.True(t, cb.Check(ctx, "move").Allowed)
	})
}

// --- RateLimiter Tests ---

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allows up to limit", func(t *testing.T) {
		rl := NewRateLimiter(3, time.Minute)
		for i := 0; i < 3; i++ {
			assert.True(t, rl.Check(ctx, "wallet-a").Allowed)
		}
		res := rl.Check(ctx, "wallet-a")
		assert.False(t, res.Allowed)
		assert.Equal(t, "rate_limiter", res.Guard)
	})

	t.Run("keys are independent", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute)
		assert.True(t, rl.Check(ctx, "wallet-a").Allowed)
		assert.False(t, rl.Check(ctx, "wallet-a").Allowed)
		assert.True(t, rl.Check(ctx, "wallet-b").Allowed)
	})

	t.Run("window slides", func(t *testing.T) {
		rl := NewRateLimiter(1, 10*time.Millisecond)
		require.True(t, rl.Check(ctx, "wallet-a").Allowed)
		require.False(t, rl.Check(ctx, "wallet-a").Allowed)
		time.Sleep(20 * time.Millisecond)
		assert.True(t, rl.Check(ctx, "wallet-a").Allowed)
	})
}

// --- IdempotencyGuard Tests ---

func TestIdempotencyGuard(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects duplicates", func(t *testing.T) {
		ig := NewIdempotencyGuard(time.Minute)
		assert.True(t, ig.Check(ctx, "key-1").Allowed)
		res := ig.Check(ctx, "key-1")
		assert.False(t, res.Allowed)
		assert.Equal(t, "idempotency", res.Guard)
	})

	t.Run("empty key always allowed", func(t *testing.T) {
		ig := NewIdempotencyGuard(time.Minute)
		assert.True(t, ig.Check(ctx, "").Allowed)
		assert.True(t, ig.Check(ctx, "").Allowed)
	})

	t.Run("remove permits retry", func(t *testing.T) {
		ig := NewIdempotencyGuard(time.Minute)
		require.True(t, ig.Check(ctx, "key-1").Allowed)
		ig.Remove("key-1")
		assert.True(t, ig.Check(ctx, "key-1").Allowed)
	})

	t.Run("keys expire after ttl", func(t *testing.T) {
		ig := NewIdempotencyGuard(10 * time.Millisecond)
		require.True(t, ig.Check(ctx, "key-1").Allowed)
		require.False(t, ig.Check(ctx, "key-1").Allowed)

		time.Sleep(20 * time.Millisecond)
		assert.True(t, ig.Check(ctx, "key-1").Allowed, "expired key may be reused")
	})

	t.Run("expired keys are evicted", func(t *testing.T) {
		ig := NewIdempotencyGuard(10 * time.Millisecond)
		for _, k := range []string{"a", "b", "c"} {
			require.True(t, ig.Check(ctx, k).Allowed)
		}
		require.Len(t, ig.seen, 3)

		time.Sleep(20 * time.Millisecond)
		ig.Check(ctx, "d")
		assert.Len(t, ig.seen, 1, "stale keys pruned on check")
	})
}
