package schedule

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/eventkit/pkg/retry"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithQueue sets the queue reminder tasks are stored in.
func WithQueue(name string) Option {
	return func(r *Registry) {
		if name != "" {
			r.queue = name
		}
	}
}

// WithRetryPolicy overrides the retry policy applied to every mutation.
func WithRetryPolicy(p retry.Policy) Option {
	return func(r *Registry) {
		if p.MaxAttempts > 0 {
			r.policy = p
		}
	}
}

// WithTaskRetries sets how often the queue retries a failing reminder task.
func WithTaskRetries(n int8) Option {
	return func(r *Registry) {
		r.taskRetries = n
	}
}

// WithClock overrides the clock used to skip past fire times.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// FromConfig translates cfg into registry options.
func FromConfig(cfg Config) []Option {
	return []Option{
		WithQueue(cfg.Queue),
		WithTaskRetries(cfg.TaskRetries),
		WithRetryPolicy(retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			Backoff: retry.ExponentialBackoff{
				InitialInterval: cfg.InitialBackoff,
				MaxInterval:     cfg.MaxBackoff,
				Multiplier:      2,
				JitterFactor:    0.1,
			},
			Timeout: cfg.Timeout,
		}),
	}
}
