// Package pg bootstraps the PostgreSQL layer behind the stored-object
// database: connection pooling with startup retries, goose schema migrations,
// a health check, and error classification helpers.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil { ... }
//
// Connect retries with a growing interval so a fleet restart does not hammer
// a recovering database. Migrate bridges the pgx pool to database/sql because
// goose speaks the standard library interface, and routes goose output
// through the application logger.
//
// IsDuplicateKeyError and IsNotFoundError classify pgconn errors so the
// object store can translate them into its own sentinels.
package pg
