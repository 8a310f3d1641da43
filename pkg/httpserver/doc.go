// Package httpserver wraps net/http with graceful shutdown, configurable
// timeouts, and a health-check handler, so the entrypoint binary does not
// hand-roll server lifecycle plumbing.
//
// Server is built with New or NewFromConfig plus Option helpers (WithAddr,
// WithReadTimeout, WithLogger, ...). Run blocks until the context is
// cancelled or an interrupt/TERM signal arrives, then shuts down with the
// configured deadline. Listen failures are wrapped with ErrStart, shutdown
// failures with ErrShutdown.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil { ... }
//
// HealthCheckHandler doubles as liveness (no dependency probes) and
// readiness (probes supplied, e.g. pg.Healthcheck and redis.Healthcheck).
package httpserver
