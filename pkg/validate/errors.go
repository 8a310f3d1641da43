package validate

import "errors"

var (
	// ErrSizeExceeded is returned by the size-limiting reader as soon as the
	// stream crosses the configured maximum. The full payload is never read.
	ErrSizeExceeded = errors.New("upload exceeds maximum allowed size")

	// ErrNoContexts is returned when a rules set defines no upload contexts.
	ErrNoContexts = errors.New("rules must define at least one upload context")

	// ErrUnknownContentType is returned at rules-load time when an allowlist
	// references a content type absent from the signature registry.
	ErrUnknownContentType = errors.New("content type has no signature registry entry")

	// ErrInvalidMaxSize is returned when a context's size limit is not positive.
	ErrInvalidMaxSize = errors.New("max size must be positive")

	// ErrContextNotFound is returned when an upload names an unknown context.
	ErrContextNotFound = errors.New("upload context not found")
)
