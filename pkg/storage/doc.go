// Package storage provides content-addressable blob storage for the upload
// pipeline: put, get, delete keyed by opaque storage keys.
//
// The contract is deliberately small. Put is atomic from the caller's view
// (the full object is visible under the key or nothing is) and returns the
// byte size and SHA-256 digest computed while streaming. Delete is
// idempotent; deleting a missing key is not an error. Backends make no other
// assumptions about the medium.
//
// Three backends ship with the package: MemoryStorage for tests and local
// development, LocalStorage for single-host disk deployments, and S3Storage
// for Amazon S3 and compatible services (MinIO, R2, DigitalOcean Spaces).
package storage
