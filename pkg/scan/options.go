package scan

import (
	"context"
	"log/slog"
	"time"
)

// FailPolicy names the behavior when scan retries are exhausted. There is no
// implicit default beyond FailClosed; deployments that prefer availability
// over the scan guarantee must opt into fail-open explicitly.
type FailPolicy string

const (
	// FailClosed leaves the object in scanning, unservable, and alerts.
	FailClosed FailPolicy = "fail_closed"
	// FailOpenAfterMaxAttempts promotes the object to clean after the retry
	// budget is spent, and alerts. Availability over safety.
	FailOpenAfterMaxAttempts FailPolicy = "fail_open_after_max_attempts"
)

// Valid reports whether the policy is a recognized value.
func (p FailPolicy) Valid() bool {
	return p == FailClosed || p == FailOpenAfterMaxAttempts
}

// AlertFunc receives operational alerts: retry budget exhausted for a key.
// Called outside any lock; implementations route to paging or metrics.
type AlertFunc func(ctx context.Context, storageKey string, attempts int, err error)

type poolOptions struct {
	workers        int
	pollInterval   time.Duration
	lease          time.Duration
	attemptTimeout time.Duration
	maxAttempts    int
	failPolicy     FailPolicy
	backoff        BackoffStrategy
	recorder       Recorder
	alert          AlertFunc
	logger         *slog.Logger
}

// PoolOption configures the worker pool.
type PoolOption func(*poolOptions)

// WithWorkers sets the number of concurrent scan workers.
func WithWorkers(n int) PoolOption {
	return func(o *poolOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithPollInterval sets how often an idle worker polls the queue.
func WithPollInterval(d time.Duration) PoolOption {
	return func(o *poolOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithLease sets the queue lease per delivery. It must comfortably exceed
// the attempt timeout or a slow scan will be redelivered while running.
func WithLease(d time.Duration) PoolOption {
	return func(o *poolOptions) {
		if d > 0 {
			o.lease = d
		}
	}
}

// WithAttemptTimeout bounds a single call to the scan engine.
func WithAttemptTimeout(d time.Duration) PoolOption {
	return func(o *poolOptions) {
		if d > 0 {
			o.attemptTimeout = d
		}
	}
}

// WithMaxAttempts sets the retry budget per storage key.
func WithMaxAttempts(n int) PoolOption {
	return func(o *poolOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithFailPolicy sets the exhausted-retries policy.
func WithFailPolicy(p FailPolicy) PoolOption {
	return func(o *poolOptions) { o.failPolicy = p }
}

// WithBackoff sets the retry backoff strategy.
func WithBackoff(b BackoffStrategy) PoolOption {
	return func(o *poolOptions) {
		if b != nil {
			o.backoff = b
		}
	}
}

// WithRecorder sets the quarantine recorder.
func WithRecorder(r Recorder) PoolOption {
	return func(o *poolOptions) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithAlertFunc sets the operational alert hook.
func WithAlertFunc(f AlertFunc) PoolOption {
	return func(o *poolOptions) {
		if f != nil {
			o.alert = f
		}
	}
}

// WithLogger sets the pool logger.
func WithLogger(l *slog.Logger) PoolOption {
	return func(o *poolOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
