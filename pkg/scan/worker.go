package scan

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/fileguard/pkg/object"
	"github.com/dmitrymomot/fileguard/pkg/scanqueue"
	"github.com/dmitrymomot/fileguard/pkg/storage"
)

// WorkerPool consumes the scan queue with a fixed number of workers and
// drives object lifecycle transitions from scan verdicts.
type WorkerPool struct {
	queue   scanqueue.Queue
	objects object.Store
	blobs   storage.Storage
	scanner Scanner

	recorder       Recorder
	workers        int
	pollInterval   time.Duration
	lease          time.Duration
	attemptTimeout time.Duration
	maxAttempts    int
	failPolicy     FailPolicy
	backoff        BackoffStrategy
	alert          AlertFunc
	logger         *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkerPool wires a pool over its collaborators. Defaults: 4 workers,
// 1s poll, 10m lease, 1m attempt timeout, 5 attempts, fail-closed, and
// exponential backoff with jitter.
func NewWorkerPool(queue scanqueue.Queue, objects object.Store, blobs storage.Storage, scanner Scanner, opts ...PoolOption) (*WorkerPool, error) {
	switch {
	case queue == nil:
		return nil, ErrQueueNil
	case objects == nil:
		return nil, ErrStoreNil
	case blobs == nil:
		return nil, ErrStorageNil
	case scanner == nil:
		return nil, ErrScannerNil
	}

	options := &poolOptions{
		workers:        4,
		pollInterval:   time.Second,
		lease:          10 * time.Minute,
		attemptTimeout: time.Minute,
		maxAttempts:    5,
		failPolicy:     FailClosed,
		backoff:        ExponentialBackoff{InitialInterval: 2 * time.Second, JitterFactor: 0.2},
		recorder:       NewMemoryRecorder(),
		alert:          func(context.Context, string, int, error) {},
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if !options.failPolicy.Valid() {
		return nil, ErrInvalidFailPolicy
	}

	return &WorkerPool{
		queue:          queue,
		objects:        objects,
		blobs:          blobs,
		scanner:        scanner,
		recorder:       options.recorder,
		workers:        options.workers,
		pollInterval:   options.pollInterval,
		lease:          options.lease,
		attemptTimeout: options.attemptTimeout,
		maxAttempts:    options.maxAttempts,
		failPolicy:     options.failPolicy,
		backoff:        options.backoff,
		alert:          options.alert,
		logger:         options.logger,
	}, nil
}

// Start launches the worker goroutines.
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, p.cancel = context.WithCancel(ctx)
	for i := range p.workers {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}

	p.logger.Info("scan worker pool started",
		slog.Int("workers", p.workers),
		slog.String("fail_policy", string(p.failPolicy)))
	return nil
}

// Stop cancels the workers and waits for in-flight scans to finish.
func (p *WorkerPool) Stop() error {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return ErrNotStarted
	}
	cancel()
	p.wg.Wait()

	p.logger.Info("scan worker pool stopped")
	return nil
}

// Run starts the pool and returns a function suitable for errgroup.
func (p *WorkerPool) Run(ctx context.Context) func() error {
	return func() error {
		if err := p.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return p.Stop()
	}
}

func (p *WorkerPool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	log := p.logger.With(slog.Int("worker", id))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := p.queue.Dequeue(ctx, p.lease)
			if err != nil {
				if !errors.Is(err, scanqueue.ErrEmpty) && ctx.Err() == nil {
					log.Error("failed to dequeue scan job", slog.Any("error", err))
				}
				continue
			}
			p.process(ctx, log, job)
		}
	}
}

// process handles one delivery of one storage key.
func (p *WorkerPool) process(ctx context.Context, log *slog.Logger, job *scanqueue.Job) {
	log = log.With(slog.String("storage_key", job.StorageKey), slog.Int("attempt", job.Attempt))

	obj, err := p.objects.Get(ctx, job.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			// Object deleted between enqueue and delivery; nothing to scan.
			p.ack(ctx, log, job.StorageKey)
			return
		}
		log.Error("failed to load object for scan", slog.Any("error", err))
		p.nack(ctx, log, job)
		return
	}

	switch obj.State {
	case object.StatePendingScan:
		if err := p.objects.TransitionState(ctx, job.StorageKey, object.StatePendingScan, object.StateScanning); err != nil {
			// Lost the claim race to a duplicate delivery. Only one wins.
			log.Debug("scan claim lost", slog.Any("error", err))
			p.ack(ctx, log, job.StorageKey)
			return
		}
	case object.StateScanning:
		// Either a redelivery after a lease expiry, or a fresh enqueue of a
		// key left in scanning when fail-closed exhausted its retries. The
		// queue admits at most one live delivery per key, so no other worker
		// can hold the claim; resume it.
	default:
		// clean, infected, purged, expired: scanning is over for this key.
		p.ack(ctx, log, job.StorageKey)
		return
	}

	result, err := p.scanAttempt(ctx, job.StorageKey)
	if err != nil {
		p.handleScanFailure(ctx, log, job, err)
		return
	}

	to := object.StateClean
	if !result.Clean {
		to = object.StateInfected
	}

	if err := p.objects.TransitionState(ctx, job.StorageKey, object.StateScanning, to); err != nil {
		// The object was purged or expired while we scanned. The late result
		// must never resurrect it; discard silently.
		log.Debug("scan result discarded, state moved concurrently", slog.Any("error", err))
		p.ack(ctx, log, job.StorageKey)
		return
	}

	if to == object.StateInfected {
		rec := QuarantineRecord{
			StorageKey:        job.StorageKey,
			DetectedAt:        time.Now().UTC(),
			EngineSignatureID: result.SignatureID,
			Disposition:       DispositionQuarantined,
		}
		if err := p.recorder.Record(ctx, rec); err != nil {
			log.Error("failed to write quarantine record", slog.Any("error", err))
		}
		log.Warn("object quarantined", slog.String("signature_id", result.SignatureID))
	} else {
		log.Info("object scanned clean", slog.Int64("byte_size", obj.ByteSize))
	}

	p.ack(ctx, log, job.StorageKey)
}

// scanAttempt streams the object into the engine under the attempt timeout.
func (p *WorkerPool) scanAttempt(ctx context.Context, storageKey string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
	defer cancel()

	rc, err := p.blobs.Get(ctx, storageKey)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = rc.Close() }()

	return p.scanner.Scan(ctx, rc)
}

// handleScanFailure retries with backoff until the attempt budget is spent,
// then applies the configured fail policy.
func (p *WorkerPool) handleScanFailure(ctx context.Context, log *slog.Logger, job *scanqueue.Job, scanErr error) {
	if job.Attempt < p.maxAttempts {
		delay := p.backoff.NextInterval(job.Attempt)
		log.Warn("scan attempt failed, will retry",
			slog.Any("error", scanErr),
			slog.Duration("retry_in", delay))
		if err := p.queue.Nack(ctx, job.StorageKey, delay); err != nil && ctx.Err() == nil {
			log.Error("failed to nack scan job", slog.Any("error", err))
		}
		return
	}

	// Retry budget exhausted: this is an operational condition either way.
	p.alert(ctx, job.StorageKey, job.Attempt, scanErr)

	switch p.failPolicy {
	case FailOpenAfterMaxAttempts:
		if err := p.objects.TransitionState(ctx, job.StorageKey, object.StateScanning, object.StateClean); err != nil {
			log.Debug("fail-open promotion lost", slog.Any("error", err))
		} else {
			log.Warn("scan retries exhausted, object promoted clean by fail-open policy",
				slog.Any("error", scanErr))
		}
	default:
		// Fail closed: the object stays in scanning and is never served.
		log.Error("scan retries exhausted, object remains unservable",
			slog.Any("error", scanErr))
	}
	p.ack(ctx, log, job.StorageKey)
}

func (p *WorkerPool) ack(ctx context.Context, log *slog.Logger, storageKey string) {
	if err := p.queue.Ack(ctx, storageKey); err != nil && ctx.Err() == nil {
		log.Error("failed to ack scan job", slog.Any("error", err))
	}
}

func (p *WorkerPool) nack(ctx context.Context, log *slog.Logger, job *scanqueue.Job) {
	if err := p.queue.Nack(ctx, job.StorageKey, p.backoff.NextInterval(job.Attempt)); err != nil && ctx.Err() == nil {
		log.Error("failed to nack scan job", slog.Any("error", err))
	}
}
