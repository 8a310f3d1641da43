// Package upload orchestrates acceptance of untrusted file uploads.
//
// Accept runs the static validators in cost order (declared content type,
// extension, magic-byte signature, then streaming size enforcement), and
// only after all of them pass does it touch storage: write the bytes under a
// freshly generated key, persist a pending_scan record, and enqueue the key
// for asynchronous malware scanning. A rejected upload produces zero storage
// or queue side effects. The caller gets the stored object back immediately;
// it simply is not servable until the scan worker promotes it to clean.
//
// A client that aborts mid-stream is a validation failure with its own
// reason code, never a persisted partial object.
package upload
