package scanqueue

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryQueue is an in-process Queue for tests and single-host deployments.
// Safe for concurrent use. Expired leases and due delays are promoted lazily
// on Dequeue, so no background goroutine is needed.
type MemoryQueue struct {
	mu       sync.Mutex
	pending  []string
	guard    map[string]struct{}
	leased   map[string]time.Time
	delayed  map[string]time.Time
	attempts map[string]int

	now func() time.Time
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		guard:    make(map[string]struct{}),
		leased:   make(map[string]time.Time),
		delayed:  make(map[string]time.Time),
		attempts: make(map[string]int),
		now:      time.Now,
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, storageKey string) error {
	if storageKey == "" {
		return ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, dup := q.guard[storageKey]; dup {
		return nil
	}
	q.guard[storageKey] = struct{}{}
	q.pending = append(q.pending, storageKey)
	return nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context, lease time.Duration) (*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.promoteLocked()

	if len(q.pending) == 0 {
		return nil, ErrEmpty
	}

	key := q.pending[0]
	q.pending = q.pending[1:]
	q.leased[key] = q.now().Add(lease)
	q.attempts[key]++

	return &Job{StorageKey: key, Attempt: q.attempts[key]}, nil
}

func (q *MemoryQueue) Ack(ctx context.Context, storageKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.leased, storageKey)
	delete(q.guard, storageKey)
	delete(q.attempts, storageKey)
	return nil
}

func (q *MemoryQueue) Nack(ctx context.Context, storageKey string, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.leased[storageKey]; !ok {
		return nil
	}
	delete(q.leased, storageKey)
	if delay <= 0 {
		q.requeueLocked(storageKey)
		return nil
	}
	q.delayed[storageKey] = q.now().Add(delay)
	return nil
}

// promoteLocked moves expired leases and due delayed jobs back to pending.
func (q *MemoryQueue) promoteLocked() {
	now := q.now()
	for key, expiry := range q.leased {
		if expiry.Before(now) {
			delete(q.leased, key)
			q.requeueLocked(key)
		}
	}
	for key, ready := range q.delayed {
		if !ready.After(now) {
			delete(q.delayed, key)
			q.requeueLocked(key)
		}
	}
}

func (q *MemoryQueue) requeueLocked(key string) {
	if !slices.Contains(q.pending, key) {
		q.pending = append(q.pending, key)
	}
}

// Len returns the number of jobs currently pending delivery.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
