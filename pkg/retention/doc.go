// Package retention runs the background sweep that ends object lifecycles:
// infected objects are purged (bytes removed, quarantine disposition
// updated) and clean objects past the retention TTL are expired and their
// bytes removed.
//
// The sweeper claims each object with the same compare-and-swap transitions
// the scan workers use, so multiple sweeper instances can run concurrently;
// a lost CAS just means another instance handled the object first. Bytes
// are deleted only after the terminal state is committed, so a crashed
// sweep leaves at worst an orphaned blob behind a terminal record, never a
// servable record whose bytes are already gone.
package retention
