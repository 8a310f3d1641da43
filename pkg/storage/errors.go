package storage

import "errors"

var (
	// ErrNotFound is returned by Get when no object exists under the key.
	ErrNotFound = errors.New("object not found")

	// ErrInvalidKey is returned for empty keys or keys that would escape the
	// backend's namespace.
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrInvalidConfig is returned when a backend is constructed with
	// missing or contradictory configuration.
	ErrInvalidConfig = errors.New("invalid storage configuration")

	// ErrFailedToWrite wraps backend write failures.
	ErrFailedToWrite = errors.New("failed to write object")

	// ErrFailedToRead wraps backend read failures.
	ErrFailedToRead = errors.New("failed to read object")
)
