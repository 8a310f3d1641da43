package scanqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue implements Queue on Redis for multi-host worker fleets.
//
// Layout under the configured prefix:
//
//	<prefix>:guard    SET  - dedup guard, one member per in-flight key
//	<prefix>:pending  LIST - keys ready for delivery, LPUSH/RPOP order
//	<prefix>:leases   ZSET - leased keys scored by lease expiry (unix)
//	<prefix>:delayed  ZSET - nacked keys scored by ready time (unix)
//	<prefix>:attempts HASH - delivery counts per key
//
// Promotion of expired leases and due delays happens on Dequeue via a Lua
// script, so the move from leases/delayed back to pending is atomic and two
// pollers cannot double-promote the same key.
type RedisQueue struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisQueue creates a queue over an existing Redis client.
func NewRedisQueue(client redis.UniversalClient, prefix string) *RedisQueue {
	if prefix == "" {
		prefix = "scanqueue"
	}
	return &RedisQueue{client: client, prefix: prefix}
}

func (q *RedisQueue) key(suffix string) string {
	return q.prefix + ":" + suffix
}

func (q *RedisQueue) Enqueue(ctx context.Context, storageKey string) error {
	if storageKey == "" {
		return ErrEmptyKey
	}

	// SADD reports whether the member was new; an existing guard entry means
	// the key is already in flight and the enqueue is a no-op.
	added, err := q.client.SAdd(ctx, q.key("guard"), storageKey).Result()
	if err != nil {
		return fmt.Errorf("failed to enqueue scan job: %w", err)
	}
	if added == 0 {
		return nil
	}

	if err := q.client.LPush(ctx, q.key("pending"), storageKey).Err(); err != nil {
		// Roll the guard back so the key is not stuck unenqueueable.
		_ = q.client.SRem(ctx, q.key("guard"), storageKey).Err()
		return fmt.Errorf("failed to enqueue scan job: %w", err)
	}
	return nil
}

// promoteScript atomically moves members of a zset whose score is due back
// onto the pending list. KEYS[1]=zset, KEYS[2]=pending, ARGV[1]=now.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, key in ipairs(due) do
    redis.call('ZREM', KEYS[1], key)
    redis.call('LPUSH', KEYS[2], key)
end
return #due
`)

func (q *RedisQueue) Dequeue(ctx context.Context, lease time.Duration) (*Job, error) {
	now := time.Now()

	for _, zset := range []string{q.key("leases"), q.key("delayed")} {
		if err := promoteScript.Run(ctx, q.client,
			[]string{zset, q.key("pending")}, now.Unix()).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to promote scan jobs: %w", err)
		}
	}

	storageKey, err := q.client.RPop(ctx, q.key("pending")).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("failed to dequeue scan job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.ZAdd(ctx, q.key("leases"), redis.Z{Score: float64(now.Add(lease).Unix()), Member: storageKey})
	attempt := pipe.HIncrBy(ctx, q.key("attempts"), storageKey, 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to lease scan job: %w", err)
	}

	return &Job{StorageKey: storageKey, Attempt: int(attempt.Val())}, nil
}

func (q *RedisQueue) Ack(ctx context.Context, storageKey string) error {
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, q.key("leases"), storageKey)
	pipe.SRem(ctx, q.key("guard"), storageKey)
	pipe.HDel(ctx, q.key("attempts"), storageKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to ack scan job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Nack(ctx context.Context, storageKey string, delay time.Duration) error {
	ready := time.Now().Add(delay)
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, q.key("leases"), storageKey)
	pipe.ZAdd(ctx, q.key("delayed"), redis.Z{Score: float64(ready.Unix()), Member: storageKey})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to nack scan job: %w", err)
	}
	return nil
}
