// Package async offers small generic helpers for running work concurrently:
// Future values returned by Async, bounded fan-out through a Limiter, and
// WaitAll to collect results.
//
//	limiter := async.NewLimiter(8)
//	futures := make([]*async.Future[Result], 0, len(channels))
//	for _, ch := range channels {
//		futures = append(futures, async.Go(ctx, limiter, ch, deliver))
//	}
//	results, err := async.WaitAll(futures...)
package async
