package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/fileguard/pkg/logger"
)

func TestError(t *testing.T) {
	t.Parallel()

	t.Run("nil error yields empty attr", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, slog.Attr{}, logger.Error(nil))
	})

	t.Run("non-nil error", func(t *testing.T) {
		t.Parallel()
		err := errors.New("boom")
		attr := logger.Error(err)
		assert.Equal(t, "error", attr.Key)
		assert.Equal(t, err, attr.Value.Any())
	})
}

func TestErrors(t *testing.T) {
	t.Parallel()

	t.Run("all nil yields empty attr", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, slog.Attr{}, logger.Errors(nil, nil))
	})

	t.Run("skips nil entries", func(t *testing.T) {
		t.Parallel()
		attr := logger.Errors(errors.New("a"), nil, errors.New("b"))
		assert.Equal(t, "errors", attr.Key)
		assert.Len(t, attr.Value.Group(), 2)
	})
}

func TestDomainAttrs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "storage_key", logger.StorageKey("k").Key)
	assert.Equal(t, "upload_context", logger.UploadContext("avatars").Key)
	assert.Equal(t, "attempt", logger.Attempt(3).Key)
	assert.Equal(t, int64(3), logger.Attempt(3).Value.Int64())
	assert.Equal(t, "signature_id", logger.SignatureID("Eicar-Test").Key)
	assert.Equal(t, slog.Attr{}, logger.ObjectID(nil))
	assert.Equal(t, slog.Attr{}, logger.State(nil))
}

func TestGroup(t *testing.T) {
	t.Parallel()

	attr := logger.Group("scan", logger.Attempt(1), logger.StorageKey("k"))
	assert.Equal(t, "scan", attr.Key)
	assert.Len(t, attr.Value.Group(), 2)
}
