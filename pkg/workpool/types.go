package workpool

import (
	"context"
)

// Task is a unit of work executed by the pool.
type Task[T any] func(ctx context.Context) (T, error)

// Result carries the outcome of a completed task.
type Result[T any] struct {
	Data T
	Err  error
}

// Future represents a pending result from a submitted task.
type Future[T any] struct {
	out    chan T
	cancel context.CancelFunc
}

func newFuture[T any](out chan T, cancel context.CancelFunc) *Future[T] {
	return &Future[T]{
		out:    out,
		cancel: cancel,
	}
}

// C returns the channel that receives exactly one result.
func (f *Future[T]) C() chan T {
	return f.out
}

// Stop cancels the task's context.
func (f *Future[T]) Stop() {
	f.cancel()
}
