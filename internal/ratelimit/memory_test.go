package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory_Acquire_BurstBlockAndRefill(t *testing.T) {
	t.Parallel()

	limits := Limits{
		RatePerSec: 1.0,
		Burst:      2,
		Block:      2 * time.Second,
	}
	l := NewMemory(limits)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	ctx := context.Background()

	ok, retry, err := l.Acquire(ctx, "crt.sh")
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, retry)

	ok, retry, err = l.Acquire(ctx, "crt.sh")
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, retry)

	// out of tokens → blocked for Block
	ok, retry, err = l.Acquire(ctx, "crt.sh")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 2*time.Second, retry)

	// still blocked; retry should decrease
	now = now.Add(500 * time.Millisecond)
	ok, retry, err = l.Acquire(ctx, "crt.sh")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1500*time.Millisecond, retry)

	// after the block window, refill should allow again
	now = now.Add(3 * time.Second)
	ok, retry, err = l.Acquire(ctx, "crt.sh")
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, retry)
}

func TestMemory_BlockUntil_ExtendsBlockOnlyForward(t *testing.T) {
	t.Parallel()

	limits := Limits{
		RatePerSec: 100.0,
		Burst:      1,
		Block:      1 * time.Second,
	}
	l := NewMemory(limits)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	ctx := context.Background()
	until := now.Add(5 * time.Second)
	require.NoError(t, l.BlockUntil(ctx, "geoip", until))

	// attempt to shorten the block should be ignored
	require.NoError(t, l.BlockUntil(ctx, "geoip", now.Add(3*time.Second)))

	ok, retry, err := l.Acquire(ctx, "geoip")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 5*time.Second, retry)

	now = until.Add(1 * time.Millisecond)
	ok, retry, err = l.Acquire(ctx, "geoip")
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, retry)
}

func TestMemory_DefaultUpstreamKey(t *testing.T) {
	t.Parallel()

	l := NewMemory(Limits{
		RatePerSec: 1.0,
		Burst:      1,
		Block:      100 * time.Millisecond,
	})

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	ok, _, err := l.Acquire(context.Background(), "")
	require.NoError(t, err)
	require.True(t, ok)

	l.mu.Lock()
	_, exists := l.buckets["default"]
	l.mu.Unlock()
	require.True(t, exists)
}

func TestMemory_ConcurrentAcquireSingleWinner(t *testing.T) {
	t.Parallel()

	l := NewMemory(Limits{
		RatePerSec: 0.0, // no refill
		Burst:      1,
		Block:      5 * time.Second,
	})

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	const n = 25
	start := make(chan struct{})
	type res struct {
		ok    bool
		retry time.Duration
		err   error
	}
	results := make(chan res, n)

	for i := 0; i < n; i++ {
		go func() {
			<-start
			ok, retry, err := l.Acquire(context.Background(), "upstream")
			results <- res{ok: ok, retry: retry, err: err}
		}()
	}

	close(start)

	okCount := 0
	for i := 0; i < n; i++ {
		r := <-results
		require.NoError(t, r.err)
		if r.ok {
			okCount++
			require.Zero(t, r.retry)
		} else {
			require.Equal(t, 5*time.Second, r.retry)
		}
	}
	require.Equal(t, 1, okCount, "expected exactly one successful Acquire")
}
