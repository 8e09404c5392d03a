package notifications

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/eventkit/pkg/retry"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMaxConcurrency bounds how many channel sends run at once.
func WithMaxConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithRetryPolicy replaces the per-channel retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(d *Dispatcher) {
		d.policy = p
	}
}

// WithClock overrides time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// FromConfig translates Config into dispatcher options.
func FromConfig(cfg Config) []Option {
	policy := retry.NotificationPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialBackoff > 0 && cfg.MaxBackoff > 0 {
		policy.Backoff = retry.ExponentialBackoff{
			InitialInterval: cfg.InitialBackoff,
			MaxInterval:     cfg.MaxBackoff,
			Multiplier:      2,
			JitterFactor:    0.1,
		}
	}
	if cfg.AttemptTimeout > 0 {
		policy.Timeout = cfg.AttemptTimeout
	}
	return []Option{
		WithMaxConcurrency(cfg.MaxConcurrency),
		WithRetryPolicy(policy),
	}
}
