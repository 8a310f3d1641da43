package storage_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fileguard/pkg/storage"
)

// backendContract runs the Storage contract against any implementation.
func backendContract(t *testing.T, s storage.Storage) {
	t.Helper()
	ctx := context.Background()
	content := "hello, pipeline"
	wantDigest := sha256.Sum256([]byte(content))

	res, err := s.Put(ctx, "key-1", strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), res.Size)
	assert.Equal(t, hex.EncodeToString(wantDigest[:]), res.SHA256)

	ok, err := s.Exists(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Get(ctx, "key-1")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, content, string(got))

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "key-1"))
	require.NoError(t, s.Delete(ctx, "key-1"), "delete must be idempotent")

	ok, err = s.Exists(ctx, "key-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStorageContract(t *testing.T) {
	t.Parallel()
	backendContract(t, storage.NewMemoryStorage())
}

func TestLocalStorageContract(t *testing.T) {
	t.Parallel()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	backendContract(t, s)
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	t.Parallel()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/b", "a\\b", ".", "..", strings.Repeat("k", 600)} {
		_, err := s.Put(context.Background(), key, strings.NewReader("x"))
		assert.ErrorIs(t, err, storage.ErrInvalidKey, "key %q", key)
		_, err = s.Get(context.Background(), key)
		assert.ErrorIs(t, err, storage.ErrInvalidKey, "key %q", key)
	}
}

func TestLocalStorageAcceptsDottedNames(t *testing.T) {
	t.Parallel()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	// Dots inside a single path component are legitimate filename content;
	// sanitized names keep them, so keys carry them too.
	for _, key := range []string{"photo..jpg", "..hidden", "archive.tar.gz", "trailing.."} {
		_, err := s.Put(context.Background(), key, strings.NewReader("x"))
		require.NoError(t, err, "key %q", key)

		rc, err := s.Get(context.Background(), key)
		require.NoError(t, err, "key %q", key)
		require.NoError(t, rc.Close())
	}
}

func TestLocalStoragePutLeavesNoPartialOnFailure(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "broken", &failingReader{})
	require.Error(t, err)

	ok, err := s.Exists(context.Background(), "broken")
	require.NoError(t, err)
	assert.False(t, ok, "failed put must not leave a visible object")
}

func TestMemoryStoragePutCalls(t *testing.T) {
	t.Parallel()
	s := storage.NewMemoryStorage()
	assert.Equal(t, 0, s.PutCalls())

	_, err := s.Put(context.Background(), "k", strings.NewReader("v"))
	require.NoError(t, err)
	assert.Equal(t, 1, s.PutCalls())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}
