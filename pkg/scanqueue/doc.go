// Package scanqueue provides the durable work queue between upload
// acceptance and malware scanning.
//
// Delivery is at-least-once with keyed deduplication: the unit of work is a
// storage key, not a queue message, so enqueueing a key that is already
// pending or leased is a no-op. Consumers take jobs under a time-bounded
// lease; a lease that expires without an Ack puts the key back in the
// pending queue, which is how worker crashes are survived. Duplicate
// deliveries are harmless downstream because every lifecycle transition is a
// compare-and-swap that only one worker can win.
//
// MemoryQueue serves tests and single-process setups; RedisQueue serves
// multi-host deployments.
package scanqueue
