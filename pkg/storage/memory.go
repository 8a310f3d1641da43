package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
)

// MemoryStorage keeps objects in process memory. Intended for tests and
// local development; safe for concurrent use.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte

	putCalls int
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

// Put buffers the stream fully, then swaps it into the map in one step so a
// failed read never leaves a partial object visible.
func (s *MemoryStorage) Put(ctx context.Context, key string, r io.Reader) (PutResult, error) {
	if !validKey(key) {
		return PutResult{}, ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return PutResult{}, err
	}

	h := sha256.New()
	var buf bytes.Buffer
	n, err := io.Copy(io.MultiWriter(&buf, h), r)
	if err != nil {
		return PutResult{}, fmt.Errorf("%w: %v", ErrFailedToWrite, err)
	}

	s.mu.Lock()
	s.objects[key] = buf.Bytes()
	s.putCalls++
	s.mu.Unlock()

	return PutResult{Size: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}

func (s *MemoryStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	return ok, nil
}

// PutCalls returns how many writes the backend has accepted. Tests use it to
// assert that rejected uploads produce zero storage side effects.
func (s *MemoryStorage) PutCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.putCalls
}

// Len returns the number of stored objects.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
