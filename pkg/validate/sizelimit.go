package validate

import (
	"context"
	"io"
)

// SizeLimitReader enforces a byte budget on an untrusted upload stream. It
// counts bytes as they flow through and fails with ErrSizeExceeded the moment
// the budget is crossed, so an oversized payload is never buffered in full.
// Reads also honor context cancellation, so a stalled client cannot pin a
// handler goroutine past its deadline.
//
// A stream of exactly max bytes succeeds; max+1 fails.
type SizeLimitReader struct {
	ctx context.Context
	r   io.Reader
	max int64
	n   int64
}

// NewSizeLimitReader wraps r with a max byte budget.
func NewSizeLimitReader(ctx context.Context, r io.Reader, max int64) *SizeLimitReader {
	return &SizeLimitReader{ctx: ctx, r: r, max: max}
}

// Read implements io.Reader.
func (l *SizeLimitReader) Read(p []byte) (int, error) {
	if err := l.ctx.Err(); err != nil {
		return 0, err
	}
	if l.n > l.max {
		return 0, ErrSizeExceeded
	}

	// Never request more than one byte past the budget: a single extra byte
	// is enough to prove the violation without buffering the excess.
	if budget := l.max - l.n + 1; int64(len(p)) > budget {
		p = p[:budget]
	}

	n, err := l.r.Read(p)
	l.n += int64(n)
	if l.n > l.max {
		return n, ErrSizeExceeded
	}
	return n, err
}

// BytesRead returns the number of bytes consumed so far.
func (l *SizeLimitReader) BytesRead() int64 { return l.n }
