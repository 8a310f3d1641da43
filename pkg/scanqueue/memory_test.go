package scanqueue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fileguard/pkg/scanqueue"
)

func TestMemoryQueueEnqueueDedup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	q := scanqueue.NewMemoryQueue()

	require.NoError(t, q.Enqueue(ctx, "key-1"))
	require.NoError(t, q.Enqueue(ctx, "key-1"), "duplicate enqueue is a no-op")
	require.NoError(t, q.Enqueue(ctx, "key-2"))
	assert.Equal(t, 2, q.Len())

	assert.ErrorIs(t, q.Enqueue(ctx, ""), scanqueue.ErrEmptyKey)
}

func TestMemoryQueueDedupWhileLeased(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	q := scanqueue.NewMemoryQueue()

	require.NoError(t, q.Enqueue(ctx, "key-1"))
	job, err := q.Dequeue(ctx, time.Minute)
	require.NoError(t, err)
	require.Equal(t, "key-1", job.StorageKey)

	// The key is leased, not pending, but re-enqueueing is still a no-op.
	require.NoError(t, q.Enqueue(ctx, "key-1"))
	_, err = q.Dequeue(ctx, time.Minute)
	assert.ErrorIs(t, err, scanqueue.ErrEmpty)
}

func TestMemoryQueueFIFOAndAttempts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	q := scanqueue.NewMemoryQueue()

	require.NoError(t, q.Enqueue(ctx, "a"))
	require.NoError(t, q.Enqueue(ctx, "b"))

	job, err := q.Dequeue(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "a", job.StorageKey)
	assert.Equal(t, 1, job.Attempt)

	job, err = q.Dequeue(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "b", job.StorageKey)
}

func TestMemoryQueueAckReleasesGuard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	q := scanqueue.NewMemoryQueue()

	require.NoError(t, q.Enqueue(ctx, "key-1"))
	_, err := q.Dequeue(ctx, time.Minute)
	require.NoError(t, err)
	require.NoError(t, q.Ack(ctx, "key-1"))

	// Once acked, the key may be scanned again (e.g. after a re-upload).
	require.NoError(t, q.Enqueue(ctx, "key-1"))
	job, err := q.Dequeue(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, job.Attempt, "attempts reset after ack")
}

func TestMemoryQueueLeaseExpiryRedelivers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	q := scanqueue.NewMemoryQueue()

	require.NoError(t, q.Enqueue(ctx, "key-1"))
	_, err := q.Dequeue(ctx, 10*time.Millisecond)
	require.NoError(t, err)

	_, err = q.Dequeue(ctx, time.Minute)
	assert.ErrorIs(t, err, scanqueue.ErrEmpty, "leased job is not deliverable")

	time.Sleep(20 * time.Millisecond)

	job, err := q.Dequeue(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "key-1", job.StorageKey)
	assert.Equal(t, 2, job.Attempt, "redelivery increments the attempt count")
}

func TestMemoryQueueNackDelay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	q := scanqueue.NewMemoryQueue()

	require.NoError(t, q.Enqueue(ctx, "key-1"))
	_, err := q.Dequeue(ctx, time.Minute)
	require.NoError(t, err)

	require.NoError(t, q.Nack(ctx, "key-1", 15*time.Millisecond))

	_, err = q.Dequeue(ctx, time.Minute)
	assert.ErrorIs(t, err, scanqueue.ErrEmpty, "nacked job is not ready before its delay")

	time.Sleep(30 * time.Millisecond)

	job, err := q.Dequeue(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "key-1", job.StorageKey)
	assert.Equal(t, 2, job.Attempt)
}

func TestMemoryQueueNackImmediate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	q := scanqueue.NewMemoryQueue()

	require.NoError(t, q.Enqueue(ctx, "key-1"))
	_, err := q.Dequeue(ctx, time.Minute)
	require.NoError(t, err)
	require.NoError(t, q.Nack(ctx, "key-1", 0))

	job, err := q.Dequeue(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "key-1", job.StorageKey)
}
