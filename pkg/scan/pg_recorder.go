package scan

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/fileguard/pkg/object"
)

// PgRecorder persists quarantine records in Postgres, sharing the database
// with the object store. INSERT ... ON CONFLICT DO NOTHING preserves the
// first-write-wins contract.
type PgRecorder struct {
	db object.DB
}

// NewPgRecorder creates a recorder over an existing pgx pool or connection.
// The quarantine_records table must exist; see the migrations directory.
func NewPgRecorder(db object.DB) *PgRecorder {
	return &PgRecorder{db: db}
}

func (r *PgRecorder) Record(ctx context.Context, rec QuarantineRecord) error {
	if rec.Disposition == "" {
		rec.Disposition = DispositionQuarantined
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO quarantine_records (storage_key, detected_at, engine_signature_id, disposition)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (storage_key) DO NOTHING`,
		rec.StorageKey, rec.DetectedAt, rec.EngineSignatureID, rec.Disposition,
	)
	if err != nil {
		return fmt.Errorf("failed to record quarantine: %w", err)
	}
	return nil
}

func (r *PgRecorder) MarkPurged(ctx context.Context, storageKey string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE quarantine_records SET disposition = $1
		WHERE storage_key = $2 AND disposition = $3`,
		DispositionPurged, storageKey, DispositionQuarantined,
	)
	if err != nil {
		return fmt.Errorf("failed to mark quarantine record purged: %w", err)
	}
	return nil
}

func (r *PgRecorder) List(ctx context.Context) ([]QuarantineRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT storage_key, detected_at, engine_signature_id, disposition
		FROM quarantine_records ORDER BY detected_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list quarantine records: %w", err)
	}
	defer rows.Close()

	var out []QuarantineRecord
	for rows.Next() {
		var rec QuarantineRecord
		if err := rows.Scan(&rec.StorageKey, &rec.DetectedAt, &rec.EngineSignatureID, &rec.Disposition); err != nil {
			return nil, fmt.Errorf("failed to scan quarantine record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
