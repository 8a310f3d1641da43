package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fileguard/pkg/grant"
	"github.com/dmitrymomot/fileguard/pkg/httpapi"
	"github.com/dmitrymomot/fileguard/pkg/object"
	"github.com/dmitrymomot/fileguard/pkg/retention"
	"github.com/dmitrymomot/fileguard/pkg/scan"
	"github.com/dmitrymomot/fileguard/pkg/scanqueue"
	"github.com/dmitrymomot/fileguard/pkg/serve"
	"github.com/dmitrymomot/fileguard/pkg/storage"
	"github.com/dmitrymomot/fileguard/pkg/upload"
	"github.com/dmitrymomot/fileguard/pkg/validate"
)

var rules = validate.Rules{
	"avatars": {AllowedTypes: []string{"image/jpeg", "image/png"}, MaxSizeBytes: 5 << 20},
}

// fakeClock is a mutable clock safe for use across request goroutines.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	server   *httptest.Server
	queue    *scanqueue.MemoryQueue
	objects  *object.MemoryStore
	blobs    *storage.MemoryStorage
	recorder *scan.MemoryRecorder
	clock    *fakeClock
}

func newEnv(t *testing.T, grantTTL time.Duration) *env {
	t.Helper()

	e := &env{
		queue:    scanqueue.NewMemoryQueue(),
		objects:  object.NewMemoryStore(),
		blobs:    storage.NewMemoryStorage(),
		recorder: scan.NewMemoryRecorder(),
		clock:    &fakeClock{now: time.Now()},
	}

	issuer, err := grant.NewIssuer("api-test-secret", grant.WithClock(e.clock.Now))
	require.NoError(t, err)

	orch, err := upload.NewOrchestrator(rules, e.blobs, e.objects, e.queue)
	require.NoError(t, err)

	gateway, err := serve.NewGateway(issuer, e.objects, e.blobs)
	require.NoError(t, err)

	api, err := httpapi.New(orch, issuer, gateway, e.objects, httpapi.WithGrantTTL(grantTTL))
	require.NoError(t, err)

	e.server = httptest.NewServer(api.Router())
	t.Cleanup(e.server.Close)
	return e
}

// runScan starts a worker pool with the given scanner and stops it when the
// test ends.
func (e *env) runScan(t *testing.T, scanner scan.Scanner) {
	t.Helper()
	pool, err := scan.NewWorkerPool(e.queue, e.objects, e.blobs, scanner,
		scan.WithWorkers(1),
		scan.WithPollInterval(5*time.Millisecond),
		scan.WithRecorder(e.recorder),
	)
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))
	t.Cleanup(func() { _ = pool.Stop() })
}

func multipartBody(t *testing.T, fieldFile, contentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fieldFile))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func (e *env) upload(t *testing.T, name, contentType string, payload []byte) *http.Response {
	t.Helper()
	body, ct := multipartBody(t, name, contentType, payload)
	resp, err := http.Post(e.server.URL+"/uploads?context=avatars", ct, body)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var m map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return m
}

func jpegPayload(size int) []byte {
	p := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x11}, size)...)
	return p[:size]
}

func TestUploadAcceptedEndToEnd(t *testing.T) {
	t.Parallel()
	e := newEnv(t, 10*time.Minute)
	e.runScan(t, scan.ScannerFunc(func(ctx context.Context, r io.Reader) (scan.Result, error) {
		_, _ = io.Copy(io.Discard, r)
		return scan.Result{Clean: true}, nil
	}))

	// Upload a 2 MB JPEG under the 5 MB limit.
	payload := jpegPayload(2 << 20)
	resp := e.upload(t, "holiday.jpg", "image/jpeg", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "pending_scan", body["lifecycle_state"])
	assert.Equal(t, "holiday.jpg", body["sanitized_name"])
	id := body["id"].(string)

	// Scan worker promotes to clean.
	key := storageKeyFor(t, e, id)
	require.Eventually(t, func() bool {
		obj, err := e.objects.Get(context.Background(), key)
		return err == nil && obj.State == object.StateClean
	}, 2*time.Second, 10*time.Millisecond)

	// Issue a 10-minute grant.
	resp, err := http.Post(e.server.URL+"/objects/"+id+"/grants", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token := decodeBody(t, resp)["token"].(string)

	// Serve succeeds within the TTL.
	resp, err = http.Get(e.server.URL + "/files/" + token)
	require.NoError(t, err)
	got, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, payload, got)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="holiday.jpg"`)

	// After the TTL the same token is denied.
	e.clock.Advance(11 * time.Minute)
	resp, err = http.Get(e.server.URL + "/files/" + token)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServeHeadReturnsHeadersOnly(t *testing.T) {
	t.Parallel()
	e := newEnv(t, 10*time.Minute)
	e.runScan(t, scan.ScannerFunc(func(ctx context.Context, r io.Reader) (scan.Result, error) {
		_, _ = io.Copy(io.Discard, r)
		return scan.Result{Clean: true}, nil
	}))

	resp := e.upload(t, "doc.jpg", "image/jpeg", jpegPayload(1024))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decodeBody(t, resp)["id"].(string)

	key := storageKeyFor(t, e, id)
	require.Eventually(t, func() bool {
		obj, err := e.objects.Get(context.Background(), key)
		return err == nil && obj.State == object.StateClean
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(e.server.URL+"/objects/"+id+"/grants", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token := decodeBody(t, resp)["token"].(string)

	resp, err = http.Head(e.server.URL + "/files/" + token)
	require.NoError(t, err)
	got, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, got, "HEAD carries no body")
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, "1024", resp.Header.Get("Content-Length"))
}

func TestUploadRenamedExecutableRejected(t *testing.T) {
	t.Parallel()
	e := newEnv(t, time.Minute)

	exe := append([]byte{'M', 'Z'}, bytes.Repeat([]byte{0}, 128)...)
	resp := e.upload(t, "report.jpg", "image/jpeg", exe)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "signature_mismatch", decodeBody(t, resp)["error"])
	assert.Equal(t, 0, e.blobs.PutCalls(), "rejected before any storage write")
}

func TestUploadOversizedRejectedWith413(t *testing.T) {
	t.Parallel()
	e := newEnv(t, time.Minute)

	resp := e.upload(t, "big.jpg", "image/jpeg", jpegPayload(5<<20+1))
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "size_exceeded", decodeBody(t, resp)["error"])
}

func TestUploadUnknownContext(t *testing.T) {
	t.Parallel()
	e := newEnv(t, time.Minute)

	body, ct := multipartBody(t, "a.jpg", "image/jpeg", jpegPayload(32))
	resp, err := http.Post(e.server.URL+"/uploads?context=nope", ct, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unknown_context", decodeBody(t, resp)["error"])
}

func TestInfectedUploadNeverServed(t *testing.T) {
	t.Parallel()
	e := newEnv(t, time.Hour)
	e.runScan(t, scan.ScannerFunc(func(ctx context.Context, r io.Reader) (scan.Result, error) {
		return scan.Result{Clean: false, SignatureID: "Test-Sig"}, nil
	}))

	resp := e.upload(t, "bad.jpg", "image/jpeg", jpegPayload(64))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decodeBody(t, resp)["id"].(string)

	// Grant issued while still pending; signature remains valid throughout.
	resp, err := http.Post(e.server.URL+"/objects/"+id+"/grants", "application/json", nil)
	require.NoError(t, err)
	token := decodeBody(t, resp)["token"].(string)

	key := storageKeyFor(t, e, id)
	require.Eventually(t, func() bool {
		obj, err := e.objects.Get(context.Background(), key)
		return err == nil && obj.State == object.StateInfected
	}, 2*time.Second, 10*time.Millisecond)

	resp, err = http.Get(e.server.URL + "/files/" + token)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "quarantined object is denied")

	// Purge via retention sweep; the grant must stay dead.
	sweeper, err := retention.NewSweeper(e.objects, e.blobs, retention.WithRecorder(e.recorder))
	require.NoError(t, err)
	sweeper.Sweep(context.Background())

	obj, err := e.objects.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, object.StatePurged, obj.State)

	resp, err = http.Get(e.server.URL + "/files/" + token)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode,
		"grant issued before purge is rejected by the live-state recheck")
}

func TestGrantForUnknownObject(t *testing.T) {
	t.Parallel()
	e := newEnv(t, time.Minute)

	resp, err := http.Post(e.server.URL+"/objects/not-a-uuid/grants", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(e.server.URL+"/objects/9b8e6f66-0000-4000-8000-000000000000/grants", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeGarbageToken(t *testing.T) {
	t.Parallel()
	e := newEnv(t, time.Minute)

	resp, err := http.Get(e.server.URL + "/files/garbage")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "access_denied", decodeBody(t, resp)["error"])
}

// storageKeyFor resolves an object id from the API response to its storage
// key via the store.
func storageKeyFor(t *testing.T, e *env, id string) string {
	t.Helper()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	obj, err := e.objects.GetByID(context.Background(), parsed)
	require.NoError(t, err)
	return obj.StorageKey
}
