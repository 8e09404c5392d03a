package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// RedisLease implements Lease with SET NX PX and owner-checked scripts.
type RedisLease struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisLease creates a lease table; keys are prefix + event id.
func NewRedisLease(client redis.UniversalClient, prefix string) *RedisLease {
	if prefix == "" {
		prefix = "eventkit:lease:"
	}
	return &RedisLease{client: client, prefix: prefix}
}

// Acquire implements Lease.
func (r *RedisLease) Acquire(ctx context.Context, eventID, owner string, ttl time.Duration) (bool, error) {
	key := r.prefix + eventID
	ok, err := r.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", eventID, err)
	}
	if ok {
		return true, nil
	}

	// Re-acquiring our own lease just extends it.
	return r.Renew(ctx, eventID, owner, ttl)
}

// Renew implements Lease.
func (r *RedisLease) Renew(ctx context.Context, eventID, owner string, ttl time.Duration) (bool, error) {
	n, err := renewScript.Run(ctx, r.client, []string{r.prefix + eventID}, owner, ttl.Milliseconds()).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("renew lease %s: %w", eventID, err)
	}
	return n == 1, nil
}

// Release implements Lease.
func (r *RedisLease) Release(ctx context.Context, eventID, owner string) error {
	err := releaseScript.Run(ctx, r.client, []string{r.prefix + eventID}, owner).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lease %s: %w", eventID, err)
	}
	return nil
}
