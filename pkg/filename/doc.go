// Package filename sanitizes untrusted display names and generates
// collision-free storage keys for uploaded files.
//
// Sanitization is total: any input string, including adversarial ones with
// path traversal components, control characters, or multi-byte padding,
// produces a safe non-empty name bounded to 255 bytes. Storage addressing
// never depends on the sanitized name; keys embed a freshly generated
// UUIDv4 and the name is appended only for human readability.
//
// # Usage
//
//	safe := filename.Sanitize("../../etc/passwd")      // "passwd"
//	key := filename.NewKey(safe)                        // "7f3c...-passwd"
//	id, _ := filename.ParseKey(key.String())
package filename
