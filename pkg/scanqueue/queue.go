package scanqueue

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEmpty is returned by Dequeue when no job is ready. Not an error
	// condition for pollers; they simply wait for the next interval.
	ErrEmpty = errors.New("no scan job available")

	// ErrEmptyKey is returned when enqueueing an empty storage key.
	ErrEmptyKey = errors.New("storage key cannot be empty")
)

// Job is one unit of scan work. Attempt counts deliveries, starting at 1.
type Job struct {
	StorageKey string
	Attempt    int
}

// Queue is the scan dispatch contract.
type Queue interface {
	// Enqueue registers a storage key for scanning. Idempotent by key: a
	// key that is already pending, leased, or delayed is left untouched.
	Enqueue(ctx context.Context, storageKey string) error

	// Dequeue claims the next ready job under a lease. If the lease expires
	// without Ack the job becomes deliverable again. Returns ErrEmpty when
	// nothing is ready.
	Dequeue(ctx context.Context, lease time.Duration) (*Job, error)

	// Ack marks the job done and releases the dedup guard for its key.
	Ack(ctx context.Context, storageKey string) error

	// Nack returns a leased job to the queue after the given delay,
	// preserving its attempt count for backoff decisions.
	Nack(ctx context.Context, storageKey string, delay time.Duration) error
}
