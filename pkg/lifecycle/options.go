package lifecycle

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/eventkit/pkg/ratelimiter"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger; coordinators derive theirs from it.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(r *Registry) {
		r.cfg = cfg
	}
}

// WithStateStore sets where coordinator states are persisted.
func WithStateStore(s StateStore) Option {
	return func(r *Registry) {
		if s != nil {
			r.states = s
		}
	}
}

// WithInbox sets the signal inbox.
func WithInbox(i Inbox) Option {
	return func(r *Registry) {
		if i != nil {
			r.inbox = i
		}
	}
}

// WithLease sets the cross-process lease.
func WithLease(l Lease) Option {
	return func(r *Registry) {
		if l != nil {
			r.lease = l
		}
	}
}

// WithRateLimiter sets the limiter for manual notifications. Keys are event ids.
func WithRateLimiter(l ratelimiter.RateLimiter) Option {
	return func(r *Registry) {
		if l != nil {
			r.limiter = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithOwner sets the lease owner identity of this process.
func WithOwner(owner string) Option {
	return func(r *Registry) {
		if owner != "" {
			r.owner = owner
		}
	}
}
