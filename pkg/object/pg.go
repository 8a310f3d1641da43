package object

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/fileguard/pkg/pg"
)

// DB is the subset of pgxpool.Pool used by PgStore, declared as an interface
// so tests can substitute a single connection or a mock.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore persists records in Postgres. The compare-and-swap transition is a
// conditional UPDATE, so the single-writer-wins guarantee holds across
// processes and hosts sharing the database.
type PgStore struct {
	db DB
}

// NewPgStore creates a store over an existing pgx pool or connection. The
// stored_objects table must exist; see the migrations directory.
func NewPgStore(db DB) *PgStore {
	return &PgStore{db: db}
}

const objectColumns = `id, sanitized_name, storage_key, byte_size, sha256, content_type, lifecycle_state, owner_id, created_at, scanned_at`

func (s *PgStore) Create(ctx context.Context, obj *StoredObject) error {
	if obj == nil {
		return ErrNilObject
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO stored_objects (`+objectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		obj.ID, obj.SanitizedName, obj.StorageKey, obj.ByteSize, obj.SHA256,
		obj.ContentType, obj.State, obj.OwnerID, obj.CreatedAt, obj.ScannedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert stored object: %w", err)
	}
	return nil
}

func (s *PgStore) Get(ctx context.Context, storageKey string) (*StoredObject, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+objectColumns+` FROM stored_objects WHERE storage_key = $1`, storageKey)
	return scanObject(row)
}

func (s *PgStore) GetByID(ctx context.Context, id uuid.UUID) (*StoredObject, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+objectColumns+` FROM stored_objects WHERE id = $1`, id)
	return scanObject(row)
}

// TransitionState issues a conditional UPDATE; zero rows affected means the
// caller lost the race (or the object is gone), which is disambiguated with
// a follow-up read.
func (s *PgStore) TransitionState(ctx context.Context, storageKey string, from, to State) error {
	if !CanTransition(from, to) {
		return ErrInvalidTransition
	}

	var tag pgconn.CommandTag
	var err error
	if to == StateClean || to == StateInfected {
		tag, err = s.db.Exec(ctx, `
			UPDATE stored_objects
			SET lifecycle_state = $1, scanned_at = now()
			WHERE storage_key = $2 AND lifecycle_state = $3`,
			to, storageKey, from)
	} else {
		tag, err = s.db.Exec(ctx, `
			UPDATE stored_objects
			SET lifecycle_state = $1
			WHERE storage_key = $2 AND lifecycle_state = $3`,
			to, storageKey, from)
	}
	if err != nil {
		return fmt.Errorf("failed to transition lifecycle state: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	if _, getErr := s.Get(ctx, storageKey); getErr != nil {
		return getErr
	}
	return ErrStateConflict
}

func (s *PgStore) ListInStateOlderThan(ctx context.Context, state State, cutoff time.Time, limit int) ([]*StoredObject, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+objectColumns+` FROM stored_objects
		WHERE lifecycle_state = $1 AND COALESCE(scanned_at, created_at) < $2
		ORDER BY created_at
		LIMIT $3`,
		state, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored objects: %w", err)
	}
	defer rows.Close()

	var out []*StoredObject
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, rows.Err()
}

func (s *PgStore) Delete(ctx context.Context, storageKey string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM stored_objects WHERE storage_key = $1`, storageKey); err != nil {
		return fmt.Errorf("failed to delete stored object: %w", err)
	}
	return nil
}

func scanObject(row pgx.Row) (*StoredObject, error) {
	var obj StoredObject
	err := row.Scan(
		&obj.ID, &obj.SanitizedName, &obj.StorageKey, &obj.ByteSize, &obj.SHA256,
		&obj.ContentType, &obj.State, &obj.OwnerID, &obj.CreatedAt, &obj.ScannedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan stored object: %w", err)
	}
	return &obj, nil
}
