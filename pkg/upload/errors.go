package upload

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/fileguard/pkg/validate"
)

var (
	// ErrRulesNil is returned when constructing an orchestrator without rules.
	ErrRulesNil = errors.New("validation rules cannot be nil")

	// ErrStorageNil is returned when constructing without blob storage.
	ErrStorageNil = errors.New("blob storage cannot be nil")

	// ErrStoreNil is returned when constructing without an object store.
	ErrStoreNil = errors.New("object store cannot be nil")

	// ErrQueueNil is returned when constructing without a scan queue.
	ErrQueueNil = errors.New("scan queue cannot be nil")

	// ErrNilReader is returned when the candidate carries no byte stream.
	ErrNilReader = errors.New("upload stream cannot be nil")

	// ErrStorageFailure wraps unrecoverable blob-write failures. Surfaced to
	// the uploader as a 5xx-equivalent; retrying is the client's move.
	ErrStorageFailure = errors.New("failed to persist upload")

	// ErrEnqueueFailure wraps scan-dispatch failures. The upload is rolled
	// back so no object can linger in pending_scan with no scan coming.
	ErrEnqueueFailure = errors.New("failed to enqueue upload for scanning")
)

// ValidationError reports a rejected upload. Deterministic and side-effect
// free: the same candidate fails the same way every time, and nothing was
// written anywhere.
type ValidationError struct {
	Stage   validate.Stage
	Reason  validate.Reason
	Verdict validate.Verdict
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("upload rejected at %s: %s", e.Stage, e.Reason)
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}
