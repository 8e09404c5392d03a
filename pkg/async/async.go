package async

import (
	"context"
	"time"
)

// Future represents the result of an asynchronous computation.
type Future[U any] struct {
	result U
	err    error
	done   chan struct{}
}

// Await waits for the asynchronous function to complete and returns its result and error.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// AwaitWithTimeout is Await bounded by timeout; it returns ErrTimeout when
// the computation is still running.
func (f *Future[U]) AwaitWithTimeout(timeout time.Duration) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-time.After(timeout):
		var zero U
		return zero, ErrTimeout
	}
}

// Async runs fn(ctx, param) in a new goroutine. A context that is already
// done short-circuits with ctx.Err().
func Async[T any, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}

	go func() {
		defer close(f.done)
		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.result, f.err = fn(ctx, param)
	}()

	return f
}

// Limiter caps how many functions started through it run at the same time.
type Limiter struct {
	sem chan struct{}
}

// NewLimiter creates a limiter admitting n concurrent calls; n < 1 means 1.
func NewLimiter(n int) *Limiter {
	return &Limiter{sem: make(chan struct{}, max(n, 1))}
}

// Go is Async that first waits for a free slot. Waiting stops when ctx is done.
func Go[T any, U any](ctx context.Context, l *Limiter, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	return Async(ctx, param, func(ctx context.Context, p T) (U, error) {
		select {
		case l.sem <- struct{}{}:
		case <-ctx.Done():
			var zero U
			return zero, ctx.Err()
		}
		defer func() { <-l.sem }()
		return fn(ctx, p)
	})
}

// WaitAll waits for all futures to complete and returns their results in
// order together with the first error encountered.
func WaitAll[U any](futures ...*Future[U]) ([]U, error) {
	results := make([]U, len(futures))
	var firstErr error

	for i, future := range futures {
		result, err := future.Await()
		results[i] = result
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return results, firstErr
}
