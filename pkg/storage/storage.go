package storage

import (
	"context"
	"io"
	"strings"
)

// PutResult reports what a backend actually stored: the byte count and the
// SHA-256 digest computed from the stream as it was written.
type PutResult struct {
	Size   int64
	SHA256 string
}

// Storage is the blob backend contract for the upload pipeline.
type Storage interface {
	// Put stores the full stream under key. Atomic from the caller's
	// perspective: either the complete object becomes visible under key or
	// nothing does. A failed or aborted put leaves no partial object.
	Put(ctx context.Context, key string, r io.Reader) (PutResult, error)

	// Get opens the object for reading. Returns ErrNotFound for missing keys.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object. Idempotent: a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is present under key.
	Exists(ctx context.Context, key string) (bool, error)
}

// validKey rejects empty keys and anything that could be interpreted as a
// path escape by a filesystem-backed implementation. Storage keys produced
// by the pipeline never contain separators; arriving here with one means the
// caller bypassed key generation. Dots embedded in a key are harmless
// without separators ("x..jpg" is a single path component), so only the
// bare dot references are refused.
func validKey(key string) bool {
	if key == "" || len(key) > 512 {
		return false
	}
	if strings.ContainsAny(key, "/\\") {
		return false
	}
	if key == "." || key == ".." {
		return false
	}
	return true
}
