package object

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps records in process memory. Safe for concurrent use;
// intended for tests and single-process deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	byKey map[string]*StoredObject
	byID  map[uuid.UUID]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byKey: make(map[string]*StoredObject),
		byID:  make(map[uuid.UUID]string),
	}
}

func (s *MemoryStore) Create(ctx context.Context, obj *StoredObject) error {
	if obj == nil {
		return ErrNilObject
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byKey[obj.StorageKey]; exists {
		return ErrAlreadyExists
	}

	cp := *obj
	s.byKey[obj.StorageKey] = &cp
	s.byID[obj.ID] = obj.StorageKey
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, storageKey string) (*StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.byKey[storageKey]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *obj
	return &cp, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	key, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.Get(ctx, key)
}

// TransitionState compares and swaps under the store mutex, which is
// equivalent to the conditional UPDATE the Postgres store issues: exactly
// one concurrent caller observes from and wins.
func (s *MemoryStore) TransitionState(ctx context.Context, storageKey string, from, to State) error {
	if !CanTransition(from, to) {
		return ErrInvalidTransition
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.byKey[storageKey]
	if !ok {
		return ErrNotFound
	}
	if obj.State != from {
		return ErrStateConflict
	}

	obj.State = to
	if to == StateClean || to == StateInfected {
		now := time.Now().UTC()
		obj.ScannedAt = &now
	}
	return nil
}

func (s *MemoryStore) ListInStateOlderThan(ctx context.Context, state State, cutoff time.Time, limit int) ([]*StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*StoredObject
	for _, obj := range s.byKey {
		if obj.State != state {
			continue
		}
		entered := obj.CreatedAt
		if obj.ScannedAt != nil {
			entered = *obj.ScannedAt
		}
		if !entered.Before(cutoff) {
			continue
		}
		cp := *obj
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, storageKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if obj, ok := s.byKey[storageKey]; ok {
		delete(s.byID, obj.ID)
		delete(s.byKey, storageKey)
	}
	return nil
}
