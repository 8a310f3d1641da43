// Package serve is the read side of the pipeline: it exchanges a signed
// access grant for a byte stream, but only when the object's live lifecycle
// state still permits serving.
//
// Grant verification alone is never sufficient. After the signature and
// expiry check the gateway reloads the object and requires clean; pending,
// scanning, infected, purged, expired, and missing all collapse into the
// same ErrAccessDenied, so an unauthenticated probe learns nothing about
// scan status from the response.
//
// Content types that can execute in a browser context (SVG, HTML, XML,
// scripts) are always served with a forced-download disposition, regardless
// of what the uploader declared.
package serve
