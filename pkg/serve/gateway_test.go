package serve_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fileguard/pkg/grant"
	"github.com/dmitrymomot/fileguard/pkg/object"
	"github.com/dmitrymomot/fileguard/pkg/serve"
	"github.com/dmitrymomot/fileguard/pkg/storage"
)

const secret = "serving-secret"

type env struct {
	issuer  *grant.Issuer
	objects *object.MemoryStore
	blobs   *storage.MemoryStorage
	gateway *serve.Gateway
}

func newEnv(t *testing.T, opts ...grant.IssuerOption) *env {
	t.Helper()
	issuer, err := grant.NewIssuer(secret, opts...)
	require.NoError(t, err)

	e := &env{
		issuer:  issuer,
		objects: object.NewMemoryStore(),
		blobs:   storage.NewMemoryStorage(),
	}
	gw, err := serve.NewGateway(issuer, e.objects, e.blobs)
	require.NoError(t, err)
	e.gateway = gw
	return e
}

// seed stores an object in the given state and returns its storage key.
func (e *env) seed(t *testing.T, state object.State, contentType, content string) string {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	key := id.String() + "_file.bin"

	res, err := e.blobs.Put(ctx, key, strings.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, e.objects.Create(ctx, &object.StoredObject{
		ID:            id,
		SanitizedName: "file.bin",
		StorageKey:    key,
		ByteSize:      res.Size,
		SHA256:        res.SHA256,
		ContentType:   contentType,
		State:         state,
		CreatedAt:     time.Now().UTC(),
	}))
	return key
}

func TestOpenCleanObject(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	key := e.seed(t, object.StateClean, "image/jpeg", "jpeg bytes")

	token, _, err := e.issuer.Issue(key, 10*time.Minute)
	require.NoError(t, err)

	content, err := e.gateway.Open(context.Background(), token)
	require.NoError(t, err)
	defer func() { _ = content.Close() }()

	got, err := io.ReadAll(content)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(got))
	assert.Equal(t, "file.bin", content.Name)
	assert.Equal(t, int64(len("jpeg bytes")), content.Size)
	assert.Equal(t, serve.DispositionInline, content.Disposition)
}

func TestOpenDeniesEveryNonServableState(t *testing.T) {
	t.Parallel()

	states := []object.State{
		object.StatePendingScan,
		object.StateScanning,
		object.StateInfected,
		object.StatePurged,
		object.StateExpired,
	}
	for _, state := range states {
		t.Run(string(state), func(t *testing.T) {
			t.Parallel()
			e := newEnv(t)
			key := e.seed(t, state, "image/jpeg", "bytes")

			token, _, err := e.issuer.Issue(key, 10*time.Minute)
			require.NoError(t, err)

			_, err = e.gateway.Open(context.Background(), token)
			assert.ErrorIs(t, err, serve.ErrAccessDenied,
				"state %s must deny with the uniform error", state)
		})
	}
}

func TestOpenDeniesMissingObject(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	token, _, err := e.issuer.Issue("no-such-key", 10*time.Minute)
	require.NoError(t, err)

	_, err = e.gateway.Open(context.Background(), token)
	assert.ErrorIs(t, err, serve.ErrAccessDenied)
}

func TestOpenDeniesBadAndExpiredGrants(t *testing.T) {
	t.Parallel()

	now := time.Now()
	clock := &now
	e := newEnv(t, grant.WithClock(func() time.Time { return *clock }))
	key := e.seed(t, object.StateClean, "image/jpeg", "bytes")

	_, err := e.gateway.Open(context.Background(), "garbage-token")
	assert.ErrorIs(t, err, serve.ErrAccessDenied)

	token, _, err := e.issuer.Issue(key, 10*time.Minute)
	require.NoError(t, err)

	later := now.Add(11 * time.Minute)
	clock = &later
	_, err = e.gateway.Open(context.Background(), token)
	assert.ErrorIs(t, err, serve.ErrAccessDenied,
		"expired-but-signature-valid grant is denied")
}

// Grant issued while clean, object quarantined and purged afterwards: the
// live state recheck must win over the still-valid signature.
func TestOpenGrantOutlivedByQuarantine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	key := e.seed(t, object.StateClean, "image/jpeg", "bytes")

	token, _, err := e.issuer.Issue(key, time.Hour)
	require.NoError(t, err)

	// Sanity: served fine while clean.
	content, err := e.gateway.Open(ctx, token)
	require.NoError(t, err)
	_ = content.Close()

	// clean has no edge to infected, so simulate the post-purge world the
	// way the sweeper produces it: record gone, bytes gone.
	require.NoError(t, e.objects.Delete(ctx, key))
	require.NoError(t, e.blobs.Delete(ctx, key))

	_, err = e.gateway.Open(ctx, token)
	assert.ErrorIs(t, err, serve.ErrAccessDenied)
}

func TestDispositionForcedDownload(t *testing.T) {
	t.Parallel()

	dangerous := []string{
		"image/svg+xml",
		"text/html",
		"TEXT/HTML; charset=utf-8",
		"application/xml",
		"text/javascript",
	}
	for _, ct := range dangerous {
		t.Run(ct, func(t *testing.T) {
			t.Parallel()
			e := newEnv(t)
			key := e.seed(t, object.StateClean, ct, "<svg/>")

			token, _, err := e.issuer.Issue(key, time.Minute)
			require.NoError(t, err)

			content, err := e.gateway.Open(context.Background(), token)
			require.NoError(t, err)
			defer func() { _ = content.Close() }()
			assert.Equal(t, serve.DispositionAttachment, content.Disposition,
				"%s must be forced to download", ct)
		})
	}
}
