package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds how an operation is retried.
type Policy struct {
	MaxAttempts int             // Total attempts including the first one
	Backoff     BackoffStrategy // Delay before attempt n+1; nil means no delay
	Timeout     time.Duration   // Per-attempt timeout; zero disables it
}

// NotificationPolicy is used for single channel sends: 3 attempts, 1s doubling up to 10s.
func NotificationPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff: ExponentialBackoff{
			InitialInterval: time.Second,
			MaxInterval:     10 * time.Second,
			Multiplier:      2,
			JitterFactor:    0.1,
		},
		Timeout: 15 * time.Second,
	}
}

// SchedulePolicy is used for schedule mutations: 2 attempts, 2s doubling up to 30s.
func SchedulePolicy() Policy {
	return Policy{
		MaxAttempts: 2,
		Backoff: ExponentialBackoff{
			InitialInterval: 2 * time.Second,
			MaxInterval:     30 * time.Second,
			Multiplier:      2,
			JitterFactor:    0.1,
		},
		Timeout: 10 * time.Second,
	}
}

// Do runs fn until it succeeds, returns a Permanent error, the attempts run out,
// or ctx is done. The attempt number passed to fn starts at 1.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidPolicy
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 && p.Backoff != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff.NextInterval(attempt - 1)):
			}
		}

		err := runAttempt(ctx, p.Timeout, attempt, fn)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.MaxAttempts, lastErr)
}

func runAttempt(ctx context.Context, timeout time.Duration, attempt int, fn func(context.Context, int) error) error {
	if timeout <= 0 {
		return fn(ctx, attempt)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx, attempt)
}
