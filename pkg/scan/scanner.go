package scan

import (
	"context"
	"io"
)

// Result is the scan engine's verdict for one object.
type Result struct {
	Clean bool
	// SignatureID identifies the engine signature that matched when the
	// object is not clean. Empty for clean results.
	SignatureID string
}

// Scanner is the boundary to the external malware scan engine. Any returned
// error is treated as transient and retried; verdicts are final.
type Scanner interface {
	Scan(ctx context.Context, r io.Reader) (Result, error)
}

// ScannerFunc adapts a function to the Scanner interface.
type ScannerFunc func(ctx context.Context, r io.Reader) (Result, error)

func (f ScannerFunc) Scan(ctx context.Context, r io.Reader) (Result, error) {
	return f(ctx, r)
}
