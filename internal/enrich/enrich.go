// Package enrich implements the bounded-parallel enrichment coordinator
// (C4): it fans a batch of independent lookups (prefix enrichment,
// multi-source geolocation, ...) out across a capped number of concurrent
// workers, enforces a per-task timeout and an optional overall deadline,
// and always returns one Result per task in submission order (spec §4.4).
//
// Grounded on the teacher's errgroup.WithContext usage in cmd/main.go,
// generalized from a fixed set of manager subsystems into an arbitrary
// batch of caller-supplied tasks, and on golang.org/x/sync/semaphore
// (also part of the teacher's golang.org/x/sync dependency) to cap
// concurrency independent of the task count.
package enrich

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"whoisd/internal/whoiserr"
)

// DefaultMaxParallel is the default fan-out width for prefix enrichment
// (spec §4.4).
const DefaultMaxParallel = 32

// Task is one independent unit of enrichment work. Run must not panic;
// panics are recovered and converted to whoiserr.Internal, but the task
// should prefer returning an error.
type Task struct {
	ID      string
	Run     func(ctx context.Context) ([]byte, error)
	Timeout time.Duration
}

// Result pairs a Task's origin with its outcome.
type Result struct {
	ID    string
	Value []byte
	Err   error
}

// RunAll executes tasks with at most maxParallel concurrently in flight.
// If maxParallel <= 0, DefaultMaxParallel is used. If overallDeadline > 0,
// it bounds the whole batch; on expiry, outstanding tasks are cancelled
// and return Err(Timeout). Results are returned in the same order as
// tasks, regardless of completion order.
func RunAll(ctx context.Context, tasks []Task, maxParallel int, overallDeadline time.Duration) []Result {
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}

	results := make([]Result, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	if overallDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, overallDeadline)
		defer cancel()
	}

	sem := semaphore.NewWeighted(int64(maxParallel))
	g, gctx := errgroup.WithContext(ctx)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				results[i] = Result{ID: task.ID, Err: whoiserr.TimeoutErr(task.ID)}
				return nil
			}
			defer sem.Release(1)

			results[i] = runOne(gctx, task)
			return nil
		})
	}

	// g.Wait's error is always nil: runOne never returns a non-nil error
	// to the errgroup, so one task's failure never cancels its siblings.
	_ = g.Wait()

	return results
}

func runOne(ctx context.Context, task Task) (result Result) {
	result.ID = task.ID

	taskCtx := ctx
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			result.Value = nil
			result.Err = whoiserr.Wrap(whoiserr.Internal, fmt.Sprintf("enrichment task %q panicked", task.ID), fmt.Errorf("%v", r))
		}
	}()

	value, err := task.Run(taskCtx)
	if err != nil {
		if taskCtx.Err() == context.DeadlineExceeded {
			result.Err = whoiserr.TimeoutErr(task.ID)
			return result
		}
		result.Err = err
		return result
	}
	result.Value = value
	return result
}
