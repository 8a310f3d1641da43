package retention_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fileguard/pkg/object"
	"github.com/dmitrymomot/fileguard/pkg/retention"
	"github.com/dmitrymomot/fileguard/pkg/scan"
	"github.com/dmitrymomot/fileguard/pkg/storage"
)

type env struct {
	objects  *object.MemoryStore
	blobs    *storage.MemoryStorage
	recorder *scan.MemoryRecorder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return &env{
		objects:  object.NewMemoryStore(),
		blobs:    storage.NewMemoryStorage(),
		recorder: scan.NewMemoryRecorder(),
	}
}

func (e *env) seed(t *testing.T, state object.State, age time.Duration) string {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	key := id.String() + "_file.bin"

	_, err := e.blobs.Put(ctx, key, strings.NewReader("bytes"))
	require.NoError(t, err)

	scannedAt := time.Now().UTC().Add(-age)
	obj := &object.StoredObject{
		ID:            id,
		SanitizedName: "file.bin",
		StorageKey:    key,
		ByteSize:      5,
		SHA256:        "x",
		ContentType:   "image/jpeg",
		State:         state,
		CreatedAt:     scannedAt,
	}
	if state == object.StateClean || state == object.StateInfected {
		obj.ScannedAt = &scannedAt
	}
	require.NoError(t, e.objects.Create(ctx, obj))

	if state == object.StateInfected {
		require.NoError(t, e.recorder.Record(ctx, scan.QuarantineRecord{
			StorageKey: key, DetectedAt: scannedAt, EngineSignatureID: "Sig",
		}))
	}
	return key
}

func (e *env) sweeper(t *testing.T, opts ...retention.Option) *retention.Sweeper {
	t.Helper()
	opts = append([]retention.Option{retention.WithRecorder(e.recorder)}, opts...)
	s, err := retention.NewSweeper(e.objects, e.blobs, opts...)
	require.NoError(t, err)
	return s
}

func TestSweepPurgesInfected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	key := e.seed(t, object.StateInfected, time.Minute)

	e.sweeper(t).Sweep(ctx)

	obj, err := e.objects.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, object.StatePurged, obj.State)

	ok, err := e.blobs.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "purged bytes must be removed")

	records, err := e.recorder.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, scan.DispositionPurged, records[0].Disposition)
}

func TestSweepExpiresOldCleanOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	oldKey := e.seed(t, object.StateClean, 48*time.Hour)
	freshKey := e.seed(t, object.StateClean, time.Minute)

	e.sweeper(t, retention.WithCleanTTL(24*time.Hour)).Sweep(ctx)

	obj, err := e.objects.Get(ctx, oldKey)
	require.NoError(t, err)
	assert.Equal(t, object.StateExpired, obj.State)
	ok, _ := e.blobs.Exists(ctx, oldKey)
	assert.False(t, ok)

	obj, err = e.objects.Get(ctx, freshKey)
	require.NoError(t, err)
	assert.Equal(t, object.StateClean, obj.State, "objects inside the TTL stay clean")
	ok, _ = e.blobs.Exists(ctx, freshKey)
	assert.True(t, ok)
}

func TestSweepWithoutCleanTTLKeepsClean(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	key := e.seed(t, object.StateClean, 1000*time.Hour)

	e.sweeper(t).Sweep(ctx)

	obj, err := e.objects.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, object.StateClean, obj.State, "retention disabled by default")
}

func TestSweepIgnoresNonTerminalStates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	pending := e.seed(t, object.StatePendingScan, 48*time.Hour)
	scanning := e.seed(t, object.StateScanning, 48*time.Hour)

	e.sweeper(t, retention.WithCleanTTL(time.Hour)).Sweep(ctx)

	for _, key := range []string{pending, scanning} {
		ok, err := e.blobs.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, "sweeper must not touch %s", key)
	}
}

func TestSweeperStartStop(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	key := e.seed(t, object.StateInfected, time.Minute)

	s := e.sweeper(t, retention.WithInterval(10*time.Millisecond))
	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), retention.ErrAlreadyStarted)

	require.Eventually(t, func() bool {
		obj, err := e.objects.Get(context.Background(), key)
		return err == nil && obj.State == object.StatePurged
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), retention.ErrNotStarted)
}
