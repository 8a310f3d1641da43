package scan

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

const clamdChunkSize = 32 * 1024

// ClamdScanner speaks the clamd INSTREAM protocol over TCP, the usual way to
// run ClamAV as a sidecar daemon. Safe for concurrent use; each Scan opens
// its own connection.
type ClamdScanner struct {
	addr   string
	dialer net.Dialer
}

// ClamdOption configures a ClamdScanner.
type ClamdOption func(*ClamdScanner)

// WithClamdDialTimeout bounds connection establishment.
func WithClamdDialTimeout(d time.Duration) ClamdOption {
	return func(s *ClamdScanner) {
		if d > 0 {
			s.dialer.Timeout = d
		}
	}
}

// NewClamdScanner creates a scanner talking to clamd at addr
// (host:port, typically 127.0.0.1:3310).
func NewClamdScanner(addr string, opts ...ClamdOption) (*ClamdScanner, error) {
	if addr == "" {
		return nil, ErrScannerAddrEmpty
	}
	s := &ClamdScanner{
		addr:   addr,
		dialer: net.Dialer{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Scan streams r to clamd in length-prefixed chunks and parses the single
// response line. Protocol errors and connection failures are returned as
// errors, so the worker retries them; only an explicit OK / FOUND reply
// yields a verdict.
func (s *ClamdScanner) Scan(ctx context.Context, r io.Reader) (Result, error) {
	conn, err := s.dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrScanEngineUnavailable, err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	// Null-terminated command framing; the response is null-terminated too.
	if _, err := conn.Write([]byte("zINSTREAM\x00")); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrScanEngineUnavailable, err)
	}

	buf := make([]byte, clamdChunkSize)
	var size [4]byte
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			binary.BigEndian.PutUint32(size[:], uint32(n))
			if _, err := conn.Write(size[:]); err != nil {
				return Result{}, fmt.Errorf("%w: %v", ErrScanEngineUnavailable, err)
			}
			if _, err := conn.Write(buf[:n]); err != nil {
				return Result{}, fmt.Errorf("%w: %v", ErrScanEngineUnavailable, err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return Result{}, fmt.Errorf("failed to read object stream: %w", readErr)
		}
	}

	// Zero-length chunk terminates the stream.
	binary.BigEndian.PutUint32(size[:], 0)
	if _, err := conn.Write(size[:]); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrScanEngineUnavailable, err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\x00')
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrScanEngineUnavailable, err)
	}

	return parseClamdReply(strings.TrimRight(reply, "\x00"))
}

// parseClamdReply interprets replies of the form "stream: OK",
// "stream: Eicar-Signature FOUND" or "... ERROR".
func parseClamdReply(reply string) (Result, error) {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "stream:")
	reply = strings.TrimSpace(reply)

	switch {
	case reply == "OK":
		return Result{Clean: true}, nil
	case strings.HasSuffix(reply, " FOUND"):
		return Result{
			Clean:       false,
			SignatureID: strings.TrimSuffix(reply, " FOUND"),
		}, nil
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrScanEngineReply, reply)
	}
}
