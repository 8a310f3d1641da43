// Package scan runs the asynchronous malware-scanning half of the upload
// pipeline: a pool of workers that consume the scan queue, stream object
// bytes into an external scan engine, and drive the lifecycle transitions
// that make an object servable or quarantined.
//
// Every transition is a compare-and-swap on the object's lifecycle state.
// A worker first claims pending_scan → scanning; losing that CAS means a
// duplicate delivery and the job is dropped. After scanning it attempts
// scanning → clean or scanning → infected; losing that CAS means the object
// was purged meanwhile, and the result is discarded — a late scan result
// never resurrects a purged object.
//
// Engine failures retry with exponential backoff up to a configured attempt
// budget. What happens when the budget is exhausted is a named policy,
// FailClosed or FailOpenAfterMaxAttempts, never a hardcoded default:
// fail-closed leaves the object in scanning (unservable) and raises an
// operational alert; fail-open promotes it to clean and raises the same
// alert.
//
// The engine boundary is the Scanner interface. ClamdScanner implements it
// over the clamd INSTREAM protocol for deployments running ClamAV as a
// sidecar; tests use ScannerFunc.
package scan
