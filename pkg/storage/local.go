package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage stores objects as files under a single base directory. All
// paths are confined to baseDir; storage keys never carry separators, and
// keys that would escape are rejected before touching the filesystem.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage creates a filesystem backend rooted at baseDir. The
// directory is resolved to an absolute path and created if missing.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, ErrInvalidConfig
	}

	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot resolve base directory: %v", ErrInvalidConfig, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("%w: cannot create base directory: %v", ErrInvalidConfig, err)
	}

	return &LocalStorage{baseDir: abs}, nil
}

// Put streams into a temp file in the same directory, computing the digest
// on the way, and renames into place on success. The rename gives atomic
// visibility; a failed upload leaves only a temp file that is removed before
// returning.
func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader) (PutResult, error) {
	if !validKey(key) {
		return PutResult{}, ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return PutResult{}, err
	}

	tmp, err := os.CreateTemp(s.baseDir, ".upload-*")
	if err != nil {
		return PutResult{}, fmt.Errorf("%w: %v", ErrFailedToWrite, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), &contextReader{ctx: ctx, r: r})
	if err != nil {
		cleanup()
		return PutResult{}, fmt.Errorf("%w: %v", ErrFailedToWrite, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return PutResult{}, fmt.Errorf("%w: %v", ErrFailedToWrite, err)
	}

	if err := os.Rename(tmpName, s.path(key)); err != nil {
		_ = os.Remove(tmpName)
		return PutResult{}, fmt.Errorf("%w: %v", ErrFailedToWrite, err)
	}

	return PutResult{Size: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}

func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if !validKey(key) {
		return nil, ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrFailedToRead, err)
	}
	return f, nil
}

func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrFailedToWrite, err)
	}
	return nil
}

func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	if !validKey(key) {
		return false, ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrFailedToRead, err)
	}
	return true, nil
}

func (s *LocalStorage) path(key string) string {
	return filepath.Join(s.baseDir, key)
}

// contextReader aborts long copies when the request context ends.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
