package retention

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/fileguard/pkg/object"
	"github.com/dmitrymomot/fileguard/pkg/scan"
	"github.com/dmitrymomot/fileguard/pkg/storage"
)

var (
	// ErrStoreNil is returned when constructing without an object store.
	ErrStoreNil = errors.New("object store cannot be nil")

	// ErrStorageNil is returned when constructing without blob storage.
	ErrStorageNil = errors.New("blob storage cannot be nil")

	// ErrAlreadyStarted is returned when starting a running sweeper.
	ErrAlreadyStarted = errors.New("sweeper already started")

	// ErrNotStarted is returned when stopping a sweeper that is not running.
	ErrNotStarted = errors.New("sweeper not started")
)

// Sweeper periodically purges infected objects and expires clean objects
// past their retention TTL.
type Sweeper struct {
	objects  object.Store
	blobs    storage.Storage
	recorder scan.Recorder

	interval  time.Duration
	cleanTTL  time.Duration // zero disables expiry of clean objects
	batchSize int
	logger    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures the sweeper.
type Option func(*Sweeper)

// WithInterval sets the sweep period.
func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithCleanTTL enables expiry of clean objects older than ttl. Left unset,
// clean objects are kept forever.
func WithCleanTTL(ttl time.Duration) Option {
	return func(s *Sweeper) {
		if ttl > 0 {
			s.cleanTTL = ttl
		}
	}
}

// WithBatchSize caps how many objects one sweep pass handles per state.
func WithBatchSize(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithRecorder sets the quarantine recorder used to mark purges.
func WithRecorder(r scan.Recorder) Option {
	return func(s *Sweeper) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSweeper wires a sweeper over the object store and blob storage.
func NewSweeper(objects object.Store, blobs storage.Storage, opts ...Option) (*Sweeper, error) {
	if objects == nil {
		return nil, ErrStoreNil
	}
	if blobs == nil {
		return nil, ErrStorageNil
	}

	s := &Sweeper{
		objects:   objects,
		blobs:     blobs,
		recorder:  scan.NewMemoryRecorder(),
		interval:  time.Minute,
		batchSize: 100,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start launches the background sweep loop.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("retention sweeper started",
		slog.Duration("interval", s.interval),
		slog.Duration("clean_ttl", s.cleanTTL))
	return nil
}

// Stop cancels the loop and waits for an in-flight pass to finish.
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return ErrNotStarted
	}
	cancel()
	s.wg.Wait()
	return nil
}

// Run starts the sweeper and returns a function suitable for errgroup.
func (s *Sweeper) Run(ctx context.Context) func() error {
	return func() error {
		if err := s.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return s.Stop()
	}
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one pass. Exported so deployments can trigger it from a
// scheduler instead of the built-in loop.
func (s *Sweeper) Sweep(ctx context.Context) {
	s.purgeInfected(ctx)
	if s.cleanTTL > 0 {
		s.expireClean(ctx)
	}
}

func (s *Sweeper) purgeInfected(ctx context.Context) {
	// Every infected object is eligible immediately; the cutoff is now.
	objs, err := s.objects.ListInStateOlderThan(ctx, object.StateInfected, time.Now().UTC(), s.batchSize)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list infected objects", slog.Any("error", err))
		return
	}

	for _, obj := range objs {
		if err := s.objects.TransitionState(ctx, obj.StorageKey, object.StateInfected, object.StatePurged); err != nil {
			// Lost the CAS to a concurrent sweeper; its problem now.
			continue
		}
		if err := s.blobs.Delete(ctx, obj.StorageKey); err != nil {
			s.logger.ErrorContext(ctx, "failed to delete purged object bytes",
				slog.String("storage_key", obj.StorageKey), slog.Any("error", err))
		}
		if err := s.recorder.MarkPurged(ctx, obj.StorageKey); err != nil {
			s.logger.ErrorContext(ctx, "failed to update quarantine disposition",
				slog.String("storage_key", obj.StorageKey), slog.Any("error", err))
		}
		s.logger.Info("infected object purged", slog.String("storage_key", obj.StorageKey))
	}
}

func (s *Sweeper) expireClean(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.cleanTTL)
	objs, err := s.objects.ListInStateOlderThan(ctx, object.StateClean, cutoff, s.batchSize)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list clean objects", slog.Any("error", err))
		return
	}

	for _, obj := range objs {
		if err := s.objects.TransitionState(ctx, obj.StorageKey, object.StateClean, object.StateExpired); err != nil {
			continue
		}
		if err := s.blobs.Delete(ctx, obj.StorageKey); err != nil {
			s.logger.ErrorContext(ctx, "failed to delete expired object bytes",
				slog.String("storage_key", obj.StorageKey), slog.Any("error", err))
		}
		s.logger.Info("clean object expired by retention policy",
			slog.String("storage_key", obj.StorageKey))
	}
}
