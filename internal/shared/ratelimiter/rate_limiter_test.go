package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Wait(t *testing.T) {
	t.Run("success: calls within the limit do not wait", func(t *testing.T) {
		rl := NewRateLimiter(3, time.Hour)

		start := time.Now()
		for i := 0; i < 3; i++ {
			require.NoError(t, rl.Wait(context.Background()))
		}
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("success: call over the limit waits for the next window", func(t *testing.T) {
		rl := NewRateLimiter(1, 50*time.Millisecond)

		require.NoError(t, rl.Wait(context.Background()))
		start := time.Now()
		require.NoError(t, rl.Wait(context.Background()))
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("error: cancelled context stops waiting", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Hour)
		require.NoError(t, rl.Wait(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := rl.Wait(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("success: zero limit disables throttling", func(t *testing.T) {
		rl := NewRateLimiter(0, time.Hour)
		for i := 0; i < 10; i++ {
			assert.NoError(t, rl.Wait(context.Background()))
		}
	})

	t.Run("success: window resets after interval", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		rl := NewRateLimiter(1, time.Minute)
		rl.now = func() time.Time { return now }
		rl.lastReset = now

		assert.Equal(t, time.Duration(0), rl.reserve())
		now = now.Add(time.Minute)
		assert.Equal(t, time.Duration(0), rl.reserve())
		assert.Equal(t, time.Minute, rl.reserve())
	})
}
