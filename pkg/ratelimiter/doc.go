// Package ratelimiter implements keyed token buckets.
//
// A Bucket holds Capacity tokens and regains RefillRate of them every
// RefillInterval. Denied requests consume nothing. State lives in a Store:
// MemoryStore for a single process, RedisStore when several processes must
// share one budget.
//
//	store := ratelimiter.NewMemoryStore()
//	defer store.Close()
//
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       5,
//		RefillRate:     1,
//		RefillInterval: time.Minute,
//	})
//	if err != nil {
//		return err
//	}
//
//	res, err := limiter.Allow(ctx, eventID)
//	if err != nil {
//		return err
//	}
//	if !res.Allowed() {
//		return fmt.Errorf("slow down, retry in %s", res.RetryAfter())
//	}
package ratelimiter
