// Package config loads application configuration from environment variables
// into tagged structs, with optional .env file support.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11. Each
// configuration type is parsed at most once per process and cached, so the
// pipeline components can each call Load for their own config struct without
// re-reading the environment.
//
// Usage:
//
//	type ScanConfig struct {
//		Workers        int           `env:"SCAN_WORKERS" envDefault:"4"`
//		AttemptTimeout time.Duration `env:"SCAN_ATTEMPT_TIMEOUT" envDefault:"1m"`
//		FailPolicy     string        `env:"SCAN_FAIL_POLICY" envDefault:"fail_closed"`
//	}
//
//	var cfg ScanConfig
//	config.MustLoad(&cfg)
//
// Sentinel errors (ErrParsingConfig, ErrLoadingEnvFile, ErrNilPointer) can be
// matched with errors.Is. ResetCache exists for tests that mutate the process
// environment between loads.
package config
