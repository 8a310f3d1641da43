package scan

import (
	"context"
	"sync"
	"time"
)

// Quarantine dispositions.
const (
	DispositionQuarantined = "quarantined"
	DispositionPurged      = "purged"
)

// QuarantineRecord is the immutable audit entry written when an object is
// flagged as infected. It exists for audit and incident response and is
// never consulted to re-admit an object to clean.
type QuarantineRecord struct {
	StorageKey        string    `json:"storage_key"`
	DetectedAt        time.Time `json:"detected_at"`
	EngineSignatureID string    `json:"engine_signature_id"`
	Disposition       string    `json:"disposition"`
}

// Recorder persists quarantine records. Record keeps the first entry per
// key; MarkPurged is the only permitted mutation and only moves the
// disposition forward to purged.
type Recorder interface {
	Record(ctx context.Context, rec QuarantineRecord) error
	MarkPurged(ctx context.Context, storageKey string) error
	List(ctx context.Context) ([]QuarantineRecord, error)
}

// MemoryRecorder keeps quarantine records in process memory.
type MemoryRecorder struct {
	mu      sync.RWMutex
	records map[string]QuarantineRecord
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{records: make(map[string]QuarantineRecord)}
}

func (r *MemoryRecorder) Record(ctx context.Context, rec QuarantineRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// First write wins; a duplicate detection carries no new information.
	if _, exists := r.records[rec.StorageKey]; !exists {
		if rec.Disposition == "" {
			rec.Disposition = DispositionQuarantined
		}
		r.records[rec.StorageKey] = rec
	}
	return nil
}

func (r *MemoryRecorder) MarkPurged(ctx context.Context, storageKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[storageKey]; ok {
		rec.Disposition = DispositionPurged
		r.records[storageKey] = rec
	}
	return nil
}

func (r *MemoryRecorder) List(ctx context.Context) ([]QuarantineRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]QuarantineRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out, nil
}
