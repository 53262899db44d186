package enrich

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"whoisd/internal/whoiserr"
)

func TestRunAllSubmissionOrder(t *testing.T) {
	tasks := []Task{
		{ID: "a", Run: func(context.Context) ([]byte, error) { return []byte("A"), nil }},
		{ID: "b", Run: func(context.Context) ([]byte, error) { return []byte("B"), nil }},
		{ID: "c", Run: func(context.Context) ([]byte, error) { return []byte("C"), nil }},
	}
	results := RunAll(context.Background(), tasks, 2, 0)
	require.Len(t, results, 3)
	require.Equal(t, "a", results[0].ID)
	require.Equal(t, "b", results[1].ID)
	require.Equal(t, "c", results[2].ID)
	require.Equal(t, []byte("A"), results[0].Value)
	require.Equal(t, []byte("B"), results[1].Value)
	require.Equal(t, []byte("C"), results[2].Value)
}

func TestRunAllOneTaskFailureDoesNotAffectOthers(t *testing.T) {
	boom := errors.New("boom")
	tasks := []Task{
		{ID: "ok", Run: func(context.Context) ([]byte, error) { return []byte("fine"), nil }},
		{ID: "bad", Run: func(context.Context) ([]byte, error) { return nil, boom }},
	}
	results := RunAll(context.Background(), tasks, 4, 0)
	require.NoError(t, results[0].Err)
	require.Equal(t, []byte("fine"), results[0].Value)
	require.ErrorIs(t, results[1].Err, boom)
}

func TestRunAllPerTaskTimeout(t *testing.T) {
	tasks := []Task{
		{
			ID:      "slow",
			Timeout: 10 * time.Millisecond,
			Run: func(ctx context.Context) ([]byte, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		},
		{ID: "fast", Run: func(context.Context) ([]byte, error) { return []byte("ok"), nil }},
	}
	results := RunAll(context.Background(), tasks, 4, 0)
	require.Equal(t, whoiserr.Timeout, whoiserr.KindOf(results[0].Err))
	require.NoError(t, results[1].Err)
}

func TestRunAllOverallDeadlineCancelsOutstanding(t *testing.T) {
	var started int32
	tasks := make([]Task, 8)
	for i := range tasks {
		tasks[i] = Task{
			ID: "t",
			Run: func(ctx context.Context) ([]byte, error) {
				atomic.AddInt32(&started, 1)
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}
	}
	start := time.Now()
	results := RunAll(context.Background(), tasks, 2, 20*time.Millisecond)
	require.Less(t, time.Since(start), 2*time.Second)
	for _, r := range results {
		require.Error(t, r.Err)
	}
}

func TestRunAllPanicRecovered(t *testing.T) {
	tasks := []Task{
		{ID: "panics", Run: func(context.Context) ([]byte, error) { panic("kaboom") }},
		{ID: "fine", Run: func(context.Context) ([]byte, error) { return []byte("ok"), nil }},
	}
	results := RunAll(context.Background(), tasks, 4, 0)
	require.Equal(t, whoiserr.Internal, whoiserr.KindOf(results[0].Err))
	require.NoError(t, results[1].Err)
}

func TestRunAllRespectsMaxParallel(t *testing.T) {
	const maxParallel = 3
	var current, maxSeen int32
	tasks := make([]Task, 20)
	for i := range tasks {
		tasks[i] = Task{
			ID: "t",
			Run: func(ctx context.Context) ([]byte, error) {
				n := atomic.AddInt32(&current, 1)
				defer atomic.AddInt32(&current, -1)
				for {
					old := atomic.LoadInt32(&maxSeen)
					if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				return nil, nil
			},
		}
	}
	RunAll(context.Background(), tasks, maxParallel, 0)
	require.LessOrEqual(t, int(maxSeen), maxParallel)
}

func TestRunAllEmptyTaskList(t *testing.T) {
	results := RunAll(context.Background(), nil, 4, 0)
	require.Empty(t, results)
}
