// Package retry provides bounded retry loops and backoff strategies.
//
// Every external call in eventkit (notification sends, schedule mutations,
// repository lookups) goes through a Policy so that no operation retries
// forever. Two policies are predefined:
//
//   - NotificationPolicy: 3 attempts, exponential backoff from 1s capped at 10s
//   - SchedulePolicy: 2 attempts, exponential backoff from 2s capped at 30s
//
// Usage:
//
//	err := retry.Do(ctx, retry.SchedulePolicy(), func(ctx context.Context, attempt int) error {
//		return store.CreateTask(ctx, task)
//	})
//
// Errors wrapped with Permanent stop the loop immediately. When all attempts
// fail, the returned error wraps both ErrExhausted and the last failure.
package retry
