// Package redis connects the scan queue to its Redis backend: a Connect
// helper with startup retries and a health-check probe.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer client.Close()
//
// Sentinel errors (ErrRedisNotReady, ErrFailedToParseRedisConnString) wrap
// the underlying go-redis errors with errors.Join so callers can match them
// with errors.Is.
package redis
