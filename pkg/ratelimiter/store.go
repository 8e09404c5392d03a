package ratelimiter

import (
	"context"
	"time"
)

// Store keeps bucket state. Implementations must refill and consume
// atomically per key.
type Store interface {
	// Take refills the bucket at key as of now and consumes tokens if enough
	// are available. remaining is the balance after the call; it is negative,
	// and nothing was consumed, when the request is denied.
	Take(ctx context.Context, key string, tokens int, cfg Config, now time.Time) (remaining int, resetAt time.Time, err error)

	// Reset forgets the bucket at key.
	Reset(ctx context.Context, key string) error
}
