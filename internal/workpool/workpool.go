// Package workpool runs blocking work (browser-driven scrapes) on a bounded
// set of goroutines and hands results back as futures.
package workpool

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many blocking tasks run at once.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// New returns a pool that runs at most size tasks concurrently. size < 1 is
// treated as 1.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the concurrency bound.
func (p *Pool) Size() int { return p.size }

// Future is the pending result of a submitted task.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Wait blocks until the task finishes or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit schedules fn on pool p. The task waits for a free slot; if ctx ends
// first, the future resolves with the context error and fn never runs.
// A panic in fn resolves the future with an error.
func Submit[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		if err := p.sem.Acquire(ctx, 1); err != nil {
			f.err = fmt.Errorf("workpool: waiting for slot: %w", err)
			return
		}
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("workpool: task panicked: %v", r)
			}
		}()
		f.val, f.err = fn(ctx)
	}()
	return f
}
