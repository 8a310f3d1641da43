package pg

import "time"

// Config is the environment surface of the Postgres connection used by the
// stored-object database.
type Config struct {
	ConnectionString  string        `env:"PG_CONN_URL,required"`                   // postgres:// connection URL
	MaxOpenConns      int32         `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`      // maximum number of open connections
	MaxIdleConns      int32         `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`       // maximum number of idle connections
	HealthCheckPeriod time.Duration `env:"PG_HEALTHCHECK_PERIOD" envDefault:"1m"`  // period between pool health checks
	MaxConnIdleTime   time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"10m"` // how long an idle connection is kept
	MaxConnLifetime   time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`  // how long a connection may be reused

	RetryAttempts int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`  // connection retry attempts on startup
	RetryInterval time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"5s"` // base interval between retries

	MigrationsPath  string `env:"PG_MIGRATIONS_PATH" envDefault:"migrations"`         // path to the goose migrations directory
	MigrationsTable string `env:"PG_MIGRATIONS_TABLE" envDefault:"schema_migrations"` // goose version table name
}
