package validate

import (
	"bytes"
	"path/filepath"
	"slices"
	"strings"
)

// SniffLen is the number of leading bytes needed to cover every signature in
// the registry, including offset signatures like WEBP's RIFF container.
const SniffLen = 16

// signature matches a fixed byte pattern at a fixed offset from the start of
// the file. Most formats sign at offset 0; container formats may not.
type signature struct {
	offset  int
	pattern []byte
}

func (s signature) match(head []byte) bool {
	end := s.offset + len(s.pattern)
	return len(head) >= end && bytes.Equal(head[s.offset:end], s.pattern)
}

// typeRule binds a declared MIME type to the extensions it may carry and the
// magic-byte signatures its content must start with.
type typeRule struct {
	extensions []string
	signatures []signature
}

// typeRegistry is the static lookup table for all supported declared types.
// A declared type missing from this table is rejected by every content check:
// fail-closed on unknown types. Extending support means extending this table,
// never bypassing it.
var typeRegistry = map[string]typeRule{
	"image/jpeg": {
		extensions: []string{"jpg", "jpeg"},
		signatures: []signature{{0, []byte{0xFF, 0xD8, 0xFF}}},
	},
	"image/png": {
		extensions: []string{"png"},
		signatures: []signature{{0, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}}},
	},
	"image/gif": {
		extensions: []string{"gif"},
		signatures: []signature{{0, []byte("GIF87a")}, {0, []byte("GIF89a")}},
	},
	"image/webp": {
		extensions: []string{"webp"},
		// RIFF container: "RIFF" at 0, "WEBP" at 8, file size in between.
		signatures: []signature{{0, []byte("RIFF")}},
	},
	"application/pdf": {
		extensions: []string{"pdf"},
		signatures: []signature{{0, []byte("%PDF")}},
	},
	"application/zip": {
		extensions: []string{"zip"},
		signatures: []signature{{0, []byte{0x50, 0x4B, 0x03, 0x04}}},
	},
}

// webpMarker is the secondary check for the RIFF container.
var webpMarker = signature{8, []byte("WEBP")}

// SupportedType reports whether the declared type has a registry entry.
func SupportedType(contentType string) bool {
	_, ok := typeRegistry[normalizeType(contentType)]
	return ok
}

// CheckContentType verifies the declared MIME type against the context's
// allowlist. This is a pure metadata check; the declared value is untrusted
// and is cross-checked against content by CheckSignature.
func CheckContentType(declared string, allowed []string) StageResult {
	declared = normalizeType(declared)
	for _, a := range allowed {
		if normalizeType(a) == declared {
			return pass(StageContentType)
		}
	}
	return fail(StageContentType, ReasonContentTypeNotAllowed)
}

// CheckExtension verifies that the sanitized filename's extension belongs to
// the declared type. A declared type with no registry entry fails closed.
func CheckExtension(sanitizedName, declared string) StageResult {
	rule, ok := typeRegistry[normalizeType(declared)]
	if !ok {
		return fail(StageExtension, ReasonExtensionMismatch)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(sanitizedName), "."))
	if slices.Contains(rule.extensions, ext) {
		return pass(StageExtension)
	}
	return fail(StageExtension, ReasonExtensionMismatch)
}

// CheckSignature verifies the leading bytes of the content against the known
// signatures for the declared type. head must carry at least SniffLen bytes
// unless the file itself is shorter. A declared type with no registry entry
// fails closed.
func CheckSignature(declared string, head []byte) StageResult {
	declared = normalizeType(declared)
	rule, ok := typeRegistry[declared]
	if !ok {
		return fail(StageSignature, ReasonSignatureMismatch)
	}

	for _, sig := range rule.signatures {
		if !sig.match(head) {
			continue
		}
		if declared == "image/webp" && !webpMarker.match(head) {
			continue
		}
		return pass(StageSignature)
	}
	return fail(StageSignature, ReasonSignatureMismatch)
}

// normalizeType lowercases the type and drops parameters like "; charset=".
func normalizeType(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}
