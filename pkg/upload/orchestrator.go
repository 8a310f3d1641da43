package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/fileguard/pkg/filename"
	"github.com/dmitrymomot/fileguard/pkg/object"
	"github.com/dmitrymomot/fileguard/pkg/scanqueue"
	"github.com/dmitrymomot/fileguard/pkg/storage"
	"github.com/dmitrymomot/fileguard/pkg/validate"
)

// Candidate is one untrusted upload request. Everything in it except Reader
// is client-declared and verified before use; nothing is persisted as-is.
type Candidate struct {
	Reader       io.Reader
	DeclaredName string
	DeclaredType string
	DeclaredSize int64 // advisory; the stream is counted regardless
	OwnerID      string
	Context      string // upload context naming the validation rules, e.g. "avatars"
}

// Orchestrator coordinates validation, storage, persistence, and scan
// dispatch for incoming uploads. Stateless and safe for arbitrary
// concurrency; all shared state lives behind the store contracts.
type Orchestrator struct {
	rules      validate.Rules
	blobs      storage.Storage
	objects    object.Store
	queue      scanqueue.Queue
	putRetries int
	logger     *slog.Logger
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPutRetries sets how many extra blob-write attempts are made under the
// same idempotent key before giving up with ErrStorageFailure.
func WithPutRetries(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.putRetries = n
		}
	}
}

// NewOrchestrator wires an orchestrator over its collaborators. The rules
// are validated eagerly so a bad allowlist fails at startup.
func NewOrchestrator(rules validate.Rules, blobs storage.Storage, objects object.Store, queue scanqueue.Queue, opts ...Option) (*Orchestrator, error) {
	switch {
	case rules == nil:
		return nil, ErrRulesNil
	case blobs == nil:
		return nil, ErrStorageNil
	case objects == nil:
		return nil, ErrStoreNil
	case queue == nil:
		return nil, ErrQueueNil
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		rules:      rules,
		blobs:      blobs,
		objects:    objects,
		queue:      queue,
		putRetries: 2,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Accept validates the candidate and, on success, stores it as a
// pending_scan object and dispatches it for scanning. Returns a
// *ValidationError for rejections (no side effects), ErrStorageFailure or
// ErrEnqueueFailure for infrastructure faults.
func (o *Orchestrator) Accept(ctx context.Context, c Candidate) (*object.StoredObject, error) {
	if c.Reader == nil {
		return nil, ErrNilReader
	}

	rules, err := o.rules.Context(c.Context)
	if err != nil {
		return nil, err
	}

	var verdict validate.Verdict
	reject := func(res validate.StageResult) error {
		o.logger.InfoContext(ctx, "upload rejected",
			slog.String("context", c.Context),
			slog.String("stage", string(res.Stage)),
			slog.String("reason", string(res.Reason)))
		return &ValidationError{Stage: res.Stage, Reason: res.Reason, Verdict: verdict}
	}

	// Cheap metadata checks first; the byte stream is untouched until they pass.
	if res := verdict.Record(validate.CheckContentType(c.DeclaredType, rules.AllowedTypes)); !res.Passed {
		return nil, reject(res)
	}

	sanitized := filename.Sanitize(c.DeclaredName)
	if res := verdict.Record(validate.CheckExtension(sanitized, c.DeclaredType)); !res.Passed {
		return nil, reject(res)
	}

	// A declared size over the limit is rejected without reading a byte.
	// The declaration is untrusted, so the stream is still counted below.
	if c.DeclaredSize > rules.MaxSizeBytes {
		return nil, reject(verdict.Record(validate.StageResult{
			Stage: validate.StageSize, Passed: false, Reason: validate.ReasonSizeExceeded,
		}))
	}

	limited := validate.NewSizeLimitReader(ctx, c.Reader, rules.MaxSizeBytes)

	head := make([]byte, validate.SniffLen)
	n, err := io.ReadFull(limited, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, o.streamFailure(ctx, c, &verdict, err, reject)
	}
	if res := verdict.Record(validate.CheckSignature(c.DeclaredType, head[:n])); !res.Passed {
		return nil, reject(res)
	}

	// Drain the remainder through the size enforcer. Buffering is bounded by
	// the context's size limit and lets blob writes be retried under the
	// same key without re-reading the client stream.
	buf := bytes.NewBuffer(head[:n])
	if _, err := io.Copy(buf, limited); err != nil {
		return nil, o.streamFailure(ctx, c, &verdict, err, reject)
	}
	verdict.Record(validate.StageResult{Stage: validate.StageSize, Passed: true})

	key := filename.NewKey(sanitized)
	res, err := o.put(ctx, key.String(), buf.Bytes())
	if err != nil {
		return nil, err
	}

	obj := &object.StoredObject{
		ID:            key.ID(),
		SanitizedName: sanitized,
		StorageKey:    key.String(),
		ByteSize:      res.Size,
		SHA256:        res.SHA256,
		ContentType:   c.DeclaredType,
		State:         object.StatePendingScan,
		OwnerID:       c.OwnerID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := o.objects.Create(ctx, obj); err != nil {
		_ = o.blobs.Delete(ctx, key.String())
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	if err := o.queue.Enqueue(ctx, key.String()); err != nil {
		// Roll back entirely; an unscannable pending object would be limbo.
		_ = o.objects.Delete(ctx, key.String())
		_ = o.blobs.Delete(ctx, key.String())
		return nil, fmt.Errorf("%w: %v", ErrEnqueueFailure, err)
	}

	o.logger.InfoContext(ctx, "upload accepted",
		slog.String("object_id", obj.ID.String()),
		slog.String("context", c.Context),
		slog.Int64("byte_size", obj.ByteSize),
		slog.String("sha256", obj.SHA256))
	return obj, nil
}

// streamFailure classifies a read error on the client stream: crossing the
// size budget is size_exceeded, anything else (disconnect, cancellation) is
// stream_truncated. Neither leaves any persisted state.
func (o *Orchestrator) streamFailure(ctx context.Context, c Candidate, verdict *validate.Verdict, err error, reject func(validate.StageResult) error) error {
	if errors.Is(err, validate.ErrSizeExceeded) {
		return reject(verdict.Record(validate.StageResult{
			Stage: validate.StageSize, Passed: false, Reason: validate.ReasonSizeExceeded,
		}))
	}
	o.logger.WarnContext(ctx, "upload stream truncated",
		slog.String("context", c.Context),
		slog.Any("error", err))
	return reject(verdict.Record(validate.StageResult{
		Stage: validate.StageStream, Passed: false, Reason: validate.ReasonStreamTruncated,
	}))
}

// put writes the buffered upload, retrying transient backend failures under
// the same idempotent key.
func (o *Orchestrator) put(ctx context.Context, key string, data []byte) (storage.PutResult, error) {
	var lastErr error
	for attempt := 0; attempt <= o.putRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return storage.PutResult{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
		res, err := o.blobs.Put(ctx, key, bytes.NewReader(data))
		if err == nil {
			return res, nil
		}
		lastErr = err
		o.logger.WarnContext(ctx, "blob write failed",
			slog.String("storage_key", key),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))
	}
	return storage.PutResult{}, fmt.Errorf("%w: %v", ErrStorageFailure, lastErr)
}
