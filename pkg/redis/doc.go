// Package redis connects eventkit to Redis through go-redis v9.
//
// The client returned by Connect backs the coordinator inbox and lease in
// pkg/lifecycle, the shared token buckets in pkg/ratelimiter and the
// cache layer. Healthcheck plugs into the readiness endpoint.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
package redis
