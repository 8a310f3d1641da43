// Package object defines the persisted record for an uploaded file and the
// lifecycle state machine that governs whether it may ever be served.
//
// Lifecycle states are strictly ordered with no reverse transitions:
//
//	pending_scan → scanning → {clean | infected}
//	infected → purged
//	clean → expired
//
// clean is the only servable state. Every state change goes through
// TransitionState, a compare-and-swap on the lifecycle field: the writer
// names the state it believes the object is in, and loses harmlessly if
// another writer got there first. There is no read-modify-write path, so the
// guarantee holds across processes and hosts, not just goroutines.
//
// Two stores ship with the package: MemoryStore for tests and single-process
// setups, and PgStore on pgx for durable multi-host deployments.
package object
