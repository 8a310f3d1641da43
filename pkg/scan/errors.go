package scan

import "errors"

var (
	// ErrQueueNil is returned when constructing a pool without a queue.
	ErrQueueNil = errors.New("scan queue cannot be nil")

	// ErrStoreNil is returned when constructing a pool without an object store.
	ErrStoreNil = errors.New("object store cannot be nil")

	// ErrStorageNil is returned when constructing a pool without blob storage.
	ErrStorageNil = errors.New("blob storage cannot be nil")

	// ErrScannerNil is returned when constructing a pool without a scan engine.
	ErrScannerNil = errors.New("scanner cannot be nil")

	// ErrInvalidFailPolicy is returned for unrecognized fail policy values.
	ErrInvalidFailPolicy = errors.New("invalid scan fail policy")

	// ErrAlreadyStarted is returned when starting a running pool.
	ErrAlreadyStarted = errors.New("worker pool already started")

	// ErrNotStarted is returned when stopping a pool that is not running.
	ErrNotStarted = errors.New("worker pool not started")

	// ErrScannerAddrEmpty is returned when constructing a clamd scanner
	// without an address.
	ErrScannerAddrEmpty = errors.New("scanner address cannot be empty")

	// ErrScanEngineUnavailable wraps connection-level failures talking to
	// the scan engine. Always transient.
	ErrScanEngineUnavailable = errors.New("scan engine unavailable")

	// ErrScanEngineReply is returned when the engine answers with something
	// other than a verdict.
	ErrScanEngineReply = errors.New("unexpected scan engine reply")
)
