package object

import "errors"

var (
	// ErrNotFound is returned when no object exists for the given key or id.
	ErrNotFound = errors.New("stored object not found")

	// ErrAlreadyExists is returned when creating an object under a key that
	// is already taken. Keys embed a fresh UUID, so hitting this in practice
	// means a retry of the same logical upload, which is safe to ignore.
	ErrAlreadyExists = errors.New("stored object already exists")

	// ErrStateConflict is returned when a compare-and-swap transition loses
	// the race: the object's current state is not the state the caller
	// named. The caller must treat its work as superseded.
	ErrStateConflict = errors.New("lifecycle state changed concurrently")

	// ErrInvalidTransition is returned for transitions outside the lifecycle
	// order, e.g. attempting to move a purged object back to clean.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrNilObject is returned when creating a nil record.
	ErrNilObject = errors.New("stored object cannot be nil")
)
