package serve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/fileguard/pkg/object"
	"github.com/dmitrymomot/fileguard/pkg/storage"
)

var (
	// ErrAccessDenied is the uniform external answer for every non-servable
	// condition: bad signature, expired grant, unknown key, and any
	// lifecycle state other than clean. Callers must not be able to tell
	// these apart.
	ErrAccessDenied = errors.New("access denied")

	// ErrVerifierNil, ErrStoreNil, ErrStorageNil guard construction.
	ErrVerifierNil = errors.New("grant verifier cannot be nil")
	ErrStoreNil    = errors.New("object store cannot be nil")
	ErrStorageNil  = errors.New("blob storage cannot be nil")
)

// Disposition is the response disposition for served content.
type Disposition string

const (
	DispositionInline     Disposition = "inline"
	DispositionAttachment Disposition = "attachment"
)

// Content is an authorized byte stream plus the response metadata the
// transport layer needs. The caller owns closing the reader.
type Content struct {
	io.ReadCloser
	Name        string
	ContentType string
	Size        int64
	Disposition Disposition
}

// Verifier is the grant-checking dependency, satisfied by *grant.Issuer.
type Verifier interface {
	Verify(token string) (string, error)
}

// Gateway authorizes and streams stored objects.
type Gateway struct {
	verifier Verifier
	objects  object.Store
	blobs    storage.Storage
	logger   *slog.Logger
}

// Option configures the gateway.
type Option func(*Gateway)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGateway wires a gateway over its collaborators.
func NewGateway(verifier Verifier, objects object.Store, blobs storage.Storage, opts ...Option) (*Gateway, error) {
	switch {
	case verifier == nil:
		return nil, ErrVerifierNil
	case objects == nil:
		return nil, ErrStoreNil
	case blobs == nil:
		return nil, ErrStorageNil
	}

	g := &Gateway{verifier: verifier, objects: objects, blobs: blobs, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Open verifies the grant, re-checks the live lifecycle state, and opens the
// byte stream. Every failure is ErrAccessDenied externally; the internal
// reason goes to the log only.
func (g *Gateway) Open(ctx context.Context, token string) (*Content, error) {
	storageKey, err := g.verifier.Verify(token)
	if err != nil {
		// No storage access on grant failure: invalid tokens must be cheap.
		g.logger.InfoContext(ctx, "grant rejected", slog.Any("error", err))
		return nil, ErrAccessDenied
	}

	obj, err := g.objects.Get(ctx, storageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			g.logger.InfoContext(ctx, "grant for missing object",
				slog.String("storage_key", storageKey))
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("failed to load object: %w", err)
	}

	// The grant may verify while the object is no longer servable; the live
	// state always wins. This is what makes quarantine irreversible from
	// the reader's side.
	if !obj.State.Servable() {
		g.logger.InfoContext(ctx, "grant for non-servable object",
			slog.String("storage_key", storageKey),
			slog.String("state", string(obj.State)))
		return nil, ErrAccessDenied
	}

	rc, err := g.blobs.Get(ctx, storageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("failed to open object stream: %w", err)
	}

	return &Content{
		ReadCloser:  rc,
		Name:        obj.SanitizedName,
		ContentType: obj.ContentType,
		Size:        obj.ByteSize,
		Disposition: dispositionFor(obj.ContentType),
	}, nil
}

// renderDangerous lists content types a browser may execute or script when
// rendered inline. Matched case-insensitively against the full type.
var renderDangerous = map[string]struct{}{
	"image/svg+xml":          {},
	"text/html":              {},
	"application/xhtml+xml":  {},
	"text/xml":               {},
	"application/xml":        {},
	"text/javascript":        {},
	"application/javascript": {},
	"application/ecmascript": {},
}

// dispositionFor forces download for render-dangerous types regardless of
// the declared type the uploader sent.
func dispositionFor(contentType string) Disposition {
	ct, _, _ := strings.Cut(contentType, ";")
	ct = strings.ToLower(strings.TrimSpace(ct))
	if _, dangerous := renderDangerous[ct]; dangerous {
		return DispositionAttachment
	}
	return DispositionInline
}
