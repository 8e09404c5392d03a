package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/eventkit/pkg/async"
)

func TestAsync(t *testing.T) {
	t.Parallel()

	t.Run("returns result", func(t *testing.T) {
		t.Parallel()
		f := async.Async(context.Background(), 21, func(_ context.Context, n int) (int, error) {
			return n * 2, nil
		})
		got, err := f.Await()
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	})

	t.Run("cancelled context short-circuits", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var called atomic.Bool
		f := async.Async(ctx, 1, func(context.Context, int) (int, error) {
			called.Store(true)
			return 1, nil
		})
		_, err := f.Await()
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called.Load())
	})

	t.Run("await with timeout", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		f := async.Async(context.Background(), 0, func(context.Context, int) (int, error) {
			<-release
			return 1, nil
		})
		_, err := f.AwaitWithTimeout(10 * time.Millisecond)
		assert.ErrorIs(t, err, async.ErrTimeout)
		close(release)
		got, err := f.Await()
		require.NoError(t, err)
		assert.Equal(t, 1, got)
	})
}

func TestGo_RespectsLimit(t *testing.T) {
	t.Parallel()

	limiter := async.NewLimiter(2)
	var running, peak atomic.Int32

	futures := make([]*async.Future[int], 0, 10)
	for i := range 10 {
		futures = append(futures, async.Go(context.Background(), limiter, i, func(_ context.Context, n int) (int, error) {
			cur := running.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return n, nil
		}))
	}

	results, err := async.WaitAll(futures...)
	require.NoError(t, err)
	assert.Len(t, results, 10)
	assert.Equal(t, 9, results[9])
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestWaitAll_FirstError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")

	ok := async.Async(context.Background(), 1, func(_ context.Context, n int) (int, error) { return n, nil })
	bad := async.Async(context.Background(), 2, func(context.Context, int) (int, error) { return 0, boom })

	results, err := async.WaitAll(ok, bad)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 0}, results)
}
