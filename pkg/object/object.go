package object

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
)

// State is the authoritative lifecycle state of a stored object.
type State string

const (
	StatePendingScan State = "pending_scan"
	StateScanning    State = "scanning"
	StateClean       State = "clean"
	StateInfected    State = "infected"
	StatePurged      State = "purged"
	StateExpired     State = "expired"
)

// transitions is the complete set of legal state changes. Anything not
// listed here, including every reverse edge, is rejected.
var transitions = map[State][]State{
	StatePendingScan: {StateScanning},
	StateScanning:    {StateClean, StateInfected},
	StateClean:       {StateExpired},
	StateInfected:    {StatePurged},
}

// CanTransition reports whether from → to is a legal lifecycle step.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// Servable reports whether an object in this state may be streamed to a
// reader. Only clean qualifies.
func (s State) Servable() bool {
	return s == StateClean
}

// StoredObject is the persisted record for one accepted upload. The storage
// key is derived from ID at creation time, never from the declared filename,
// and is unique for the life of the system.
type StoredObject struct {
	ID            uuid.UUID  `json:"id"`
	SanitizedName string     `json:"sanitized_name"`
	StorageKey    string     `json:"storage_key"`
	ByteSize      int64      `json:"byte_size"`
	SHA256        string     `json:"sha256"`
	ContentType   string     `json:"content_type"`
	State         State      `json:"lifecycle_state"`
	OwnerID       string     `json:"owner_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ScannedAt     *time.Time `json:"scanned_at,omitempty"`
}

// Store persists StoredObject records. Implementations must make
// TransitionState a single-writer-wins operation; see the package docs.
type Store interface {
	// Create persists a new record. Returns ErrAlreadyExists if the storage
	// key is taken.
	Create(ctx context.Context, obj *StoredObject) error

	// Get loads a record by storage key.
	Get(ctx context.Context, storageKey string) (*StoredObject, error)

	// GetByID loads a record by object id.
	GetByID(ctx context.Context, id uuid.UUID) (*StoredObject, error)

	// TransitionState performs a compare-and-swap from → to on the lifecycle
	// state. Returns ErrInvalidTransition for illegal edges,
	// ErrStateConflict when the object is no longer in from, ErrNotFound
	// when no record exists. Transitions into clean or infected also stamp
	// ScannedAt.
	TransitionState(ctx context.Context, storageKey string, from, to State) error

	// ListInStateOlderThan returns up to limit records that entered the
	// given state before the cutoff, used by the retention sweeper.
	ListInStateOlderThan(ctx context.Context, state State, cutoff time.Time, limit int) ([]*StoredObject, error)

	// Delete removes the record. Idempotent.
	Delete(ctx context.Context, storageKey string) error
}
