package filename

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxNameBytes bounds the sanitized name length. Most filesystems cap
// component names at 255 bytes, so anything longer is truncated.
const MaxNameBytes = 255

// Placeholder replaces names that sanitize down to nothing.
const Placeholder = "unnamed"

// Sanitize converts an arbitrary, possibly adversarial string into a safe
// display name. It keeps only the final path component, drops control
// characters, collapses every character outside [A-Za-z0-9._-] to '_', and
// truncates the result to MaxNameBytes. Empty or directory-like inputs
// become Placeholder. The function is total; it never fails.
func Sanitize(name string) string {
	// Windows-style separators are path separators too, regardless of host OS.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			// Control characters are dropped outright rather than collapsed,
			// so "\x00evil" doesn't keep a leading underscore artifact.
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name = b.String()

	// Strings made only of dots are directory references after sanitization.
	if strings.Trim(name, ".") == "" {
		return Placeholder
	}

	if len(name) > MaxNameBytes {
		name = truncate(name, MaxNameBytes)
	}

	return name
}

// truncate shortens name to max bytes while keeping the extension readable
// when one exists and is itself reasonably short.
func truncate(name string, max int) string {
	ext := filepath.Ext(name)
	if ext != "" && len(ext) < max/2 {
		stem := name[:len(name)-len(ext)]
		return stem[:max-len(ext)] + ext
	}
	return name[:max]
}

// Key is a globally unique storage key. The UUID component alone determines
// storage addressing; the name suffix exists for humans reading bucket
// listings and logs.
type Key struct {
	id   uuid.UUID
	name string
}

// NewKey generates a fresh storage key for a sanitized name. The name is
// sanitized again defensively, so callers may pass raw input.
func NewKey(name string) Key {
	return Key{id: uuid.New(), name: Sanitize(name)}
}

// KeyWithID builds a key from a known object id, used when reconstructing
// keys from persisted records.
func KeyWithID(id uuid.UUID, name string) Key {
	return Key{id: id, name: Sanitize(name)}
}

// ID returns the addressing component of the key.
func (k Key) ID() uuid.UUID { return k.id }

// Name returns the human-readable suffix.
func (k Key) Name() string { return k.name }

func (k Key) String() string {
	return k.id.String() + "_" + k.name
}

// ParseKey extracts the UUID component from a serialized storage key.
func ParseKey(s string) (uuid.UUID, error) {
	idPart, _, ok := strings.Cut(s, "_")
	if !ok {
		idPart = s
	}
	return uuid.Parse(idPart)
}
