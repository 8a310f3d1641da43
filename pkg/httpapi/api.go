package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/fileguard/pkg/grant"
	"github.com/dmitrymomot/fileguard/pkg/object"
	"github.com/dmitrymomot/fileguard/pkg/requestid"
	"github.com/dmitrymomot/fileguard/pkg/serve"
	"github.com/dmitrymomot/fileguard/pkg/upload"
	"github.com/dmitrymomot/fileguard/pkg/validate"
)

var (
	// ErrOrchestratorNil, ErrIssuerNil, ErrGatewayNil, ErrStoreNil guard construction.
	ErrOrchestratorNil = errors.New("upload orchestrator cannot be nil")
	ErrIssuerNil       = errors.New("grant issuer cannot be nil")
	ErrGatewayNil      = errors.New("serving gateway cannot be nil")
	ErrStoreNil        = errors.New("object store cannot be nil")
)

// API wires the pipeline components behind HTTP handlers.
type API struct {
	orch      *upload.Orchestrator
	issuer    *grant.Issuer
	gateway   *serve.Gateway
	objects   object.Store
	grantTTL  time.Duration
	authorize func(http.Handler) http.Handler
	logger    *slog.Logger
}

// Option configures the API.
type Option func(*API)

// WithGrantTTL sets the lifetime of issued grants.
func WithGrantTTL(ttl time.Duration) Option {
	return func(a *API) {
		if ttl > 0 {
			a.grantTTL = ttl
		}
	}
}

// WithAuthorization sets the middleware guarding grant issuance. The
// pipeline itself has no notion of users; whoever mounts the API decides
// who may mint grants.
func WithAuthorization(mw func(http.Handler) http.Handler) Option {
	return func(a *API) {
		if mw != nil {
			a.authorize = mw
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates the API over its collaborators.
func New(orch *upload.Orchestrator, issuer *grant.Issuer, gateway *serve.Gateway, objects object.Store, opts ...Option) (*API, error) {
	switch {
	case orch == nil:
		return nil, ErrOrchestratorNil
	case issuer == nil:
		return nil, ErrIssuerNil
	case gateway == nil:
		return nil, ErrGatewayNil
	case objects == nil:
		return nil, ErrStoreNil
	}

	a := &API{
		orch:      orch,
		issuer:    issuer,
		gateway:   gateway,
		objects:   objects,
		grantTTL:  10 * time.Minute,
		authorize: func(next http.Handler) http.Handler { return next },
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Router returns the mounted chi router.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	// Route HEAD to the GET handlers; handleServe skips the body itself.
	r.Use(middleware.GetHead)
	r.Post("/uploads", a.handleUpload)
	r.With(a.authorize).Post("/objects/{id}/grants", a.handleIssueGrant)
	r.Get("/files/{token}", a.handleServe)
	return r
}

// handleUpload streams the first file part of a multipart body through the
// orchestrator. The upload context comes from the "context" query parameter.
func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed_multipart")
		return
	}

	uploadCtx := r.URL.Query().Get("context")
	if uploadCtx == "" {
		uploadCtx = "default"
	}

	// Find the first file part; everything is streamed, never buffered by
	// the transport layer.
	for {
		part, err := mr.NextPart()
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing_file_part")
			return
		}
		if part.FileName() == "" {
			_ = part.Close()
			continue
		}
		defer func() { _ = part.Close() }()

		obj, err := a.orch.Accept(r.Context(), upload.Candidate{
			Reader:       part,
			DeclaredName: part.FileName(),
			DeclaredType: part.Header.Get("Content-Type"),
			OwnerID:      r.Header.Get("X-Owner-ID"),
			Context:      uploadCtx,
		})
		if err != nil {
			a.writeUploadError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"id":              obj.ID,
			"sanitized_name":  obj.SanitizedName,
			"lifecycle_state": obj.State,
		})
		return
	}
}

func (a *API) writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := upload.AsValidationError(err); ok {
		status := http.StatusBadRequest
		if ve.Reason == validate.ReasonSizeExceeded {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, string(ve.Reason))
		return
	}
	if errors.Is(err, validate.ErrContextNotFound) {
		writeError(w, http.StatusBadRequest, "unknown_context")
		return
	}

	// Storage or dispatch fault: the uploader can meaningfully retry.
	a.logger.ErrorContext(r.Context(), "upload failed", slog.Any("error", err))
	writeError(w, http.StatusInternalServerError, "upload_failed")
}

func (a *API) handleIssueGrant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	obj, err := a.objects.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		a.logger.ErrorContext(r.Context(), "failed to load object", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	token, expiresAt, err := a.issuer.Issue(obj.StorageKey, a.grantTTL)
	if err != nil {
		a.logger.ErrorContext(r.Context(), "failed to issue grant", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}

func (a *API) handleServe(w http.ResponseWriter, r *http.Request) {
	content, err := a.gateway.Open(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, serve.ErrAccessDenied) {
			// Uniform denial; no hint whether the grant, the object, or the
			// lifecycle state was at fault.
			writeError(w, http.StatusForbidden, "access_denied")
			return
		}
		a.logger.ErrorContext(r.Context(), "failed to serve object", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	defer func() { _ = content.Close() }()

	serve.WriteHeaders(w.Header(), content)
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = copyContent(w, content)
	}
}
