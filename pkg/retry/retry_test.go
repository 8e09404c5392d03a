package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/eventkit/pkg/retry"
)

func noDelay(attempts int) retry.Policy {
	return retry.Policy{MaxAttempts: attempts, Backoff: retry.FixedBackoff{}}
}

func TestDo(t *testing.T) {
	t.Parallel()

	t.Run("succeeds on first attempt", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := retry.Do(context.Background(), noDelay(3), func(ctx context.Context, attempt int) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries until success", func(t *testing.T) {
		t.Parallel()

		var attempts []int
		err := retry.Do(context.Background(), noDelay(3), func(ctx context.Context, attempt int) error {
			attempts = append(attempts, attempt)
			if attempt < 3 {
				return errors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, attempts)
	})

	t.Run("exhausted attempts wrap the last error", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		calls := 0
		err := retry.Do(context.Background(), noDelay(2), func(ctx context.Context, attempt int) error {
			calls++
			return boom
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, retry.ErrExhausted)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 2, calls)
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		t.Parallel()

		notFound := errors.New("not found")
		calls := 0
		err := retry.Do(context.Background(), noDelay(5), func(ctx context.Context, attempt int) error {
			calls++
			return retry.Permanent(notFound)
		})
		assert.ErrorIs(t, err, notFound)
		assert.True(t, retry.IsPermanent(err))
		assert.Equal(t, 1, calls)
	})

	t.Run("invalid policy", func(t *testing.T) {
		t.Parallel()

		err := retry.Do(context.Background(), retry.Policy{}, func(ctx context.Context, attempt int) error {
			return nil
		})
		assert.ErrorIs(t, err, retry.ErrInvalidPolicy)
	})

	t.Run("cancelled context interrupts backoff", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		policy := retry.Policy{MaxAttempts: 3, Backoff: retry.FixedBackoff{Interval: time.Hour}}

		err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
			cancel()
			return errors.New("transient")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("per attempt timeout", func(t *testing.T) {
		t.Parallel()

		policy := retry.Policy{MaxAttempts: 1, Timeout: 10 * time.Millisecond}
		err := retry.Do(context.Background(), policy, func(ctx context.Context, attempt int) error {
			<-ctx.Done()
			return ctx.Err()
		})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestPolicies(t *testing.T) {
	t.Parallel()

	n := retry.NotificationPolicy()
	assert.Equal(t, 3, n.MaxAttempts)
	nb, ok := n.Backoff.(retry.ExponentialBackoff)
	require.True(t, ok)
	assert.Equal(t, time.Second, nb.InitialInterval)
	assert.Equal(t, 10*time.Second, nb.MaxInterval)

	s := retry.SchedulePolicy()
	assert.Equal(t, 2, s.MaxAttempts)
	sb, ok := s.Backoff.(retry.ExponentialBackoff)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, sb.InitialInterval)
	assert.Equal(t, 30*time.Second, sb.MaxInterval)
}
