// Package httpapi exposes the upload pipeline over HTTP:
//
//	POST /uploads              multipart upload, immediate accept/reject
//	POST /objects/{id}/grants  issue a time-bounded access grant
//	GET  /files/{token}        stream bytes for a valid grant
//
// Uploaders get specific, machine-readable validation feedback; readers get
// a uniform 403 for every non-servable condition. Authorization for grant
// issuance is delegated to caller-supplied middleware; the package only
// routes and translates.
package httpapi
