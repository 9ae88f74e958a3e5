// Package async runs work in the background and exposes its outcome as a Future.
package async

import (
	"context"
	"errors"
	"time"
)

var ErrTimeout = errors.New("async: timed out waiting for future")

// Future holds the outcome of a background call.
type Future[U any] struct {
	result U
	err    error
	done   chan struct{}
}

// Go runs fn in its own goroutine. A context that is already done short-circuits
// fn and resolves the future with ctx.Err().
func Go[U any](ctx context.Context, fn func(context.Context) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.result, f.err = fn(ctx)
	}()
	return f
}

// Resolved returns a future that is already complete.
func Resolved[U any](v U, err error) *Future[U] {
	f := &Future[U]{result: v, err: err, done: make(chan struct{})}
	close(f.done)
	return f
}

// Await blocks until the future completes.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// AwaitWithTimeout is Await bounded by timeout.
func (f *Future[U]) AwaitWithTimeout(timeout time.Duration) (U, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-f.done:
		return f.result, f.err
	case <-timer.C:
		var zero U
		return zero, ErrTimeout
	}
}

// Done is closed once the future completes.
func (f *Future[U]) Done() <-chan struct{} {
	return f.done
}

// IsComplete reports completion without blocking.
func (f *Future[U]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
