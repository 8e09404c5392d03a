// Package httpserver runs the operational HTTP endpoint of eventd.
//
// Server binds its listener up front, serves until the run context ends and
// then drains in-flight requests within the shutdown timeout. Run fits an
// errgroup directly:
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	g.Go(func() error { return srv.Run(ctx, router) })
//
// LivenessHandler and ReadinessHandler back the /health routes. Readiness
// runs named dependency checks such as pg.Healthcheck and redis.Healthcheck.
package httpserver
