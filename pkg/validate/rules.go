package validate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ContextRules configures validation for one upload context, e.g. "avatars"
// or "documents".
type ContextRules struct {
	AllowedTypes []string `yaml:"allowed_types"`
	MaxSizeBytes int64    `yaml:"max_size_bytes"`
}

// Rules maps upload context names to their validation rules.
type Rules map[string]ContextRules

// Validate checks the rules set at load time so that misconfiguration is a
// startup failure rather than a per-request surprise. Every allowlisted type
// must have a signature registry entry and every size limit must be positive.
func (r Rules) Validate() error {
	if len(r) == 0 {
		return ErrNoContexts
	}
	for name, cr := range r {
		if cr.MaxSizeBytes <= 0 {
			return fmt.Errorf("%w: context %q", ErrInvalidMaxSize, name)
		}
		if len(cr.AllowedTypes) == 0 {
			return fmt.Errorf("%w: context %q has an empty allowlist", ErrNoContexts, name)
		}
		for _, ct := range cr.AllowedTypes {
			if !SupportedType(ct) {
				return fmt.Errorf("%w: %q in context %q", ErrUnknownContentType, ct, name)
			}
		}
	}
	return nil
}

// Context looks up the rules for a named upload context.
func (r Rules) Context(name string) (ContextRules, error) {
	cr, ok := r[name]
	if !ok {
		return ContextRules{}, fmt.Errorf("%w: %q", ErrContextNotFound, name)
	}
	return cr, nil
}

// LoadRules reads and validates a YAML rules file:
//
//	avatars:
//	  allowed_types: [image/jpeg, image/png]
//	  max_size_bytes: 5242880
//	documents:
//	  allowed_types: [application/pdf]
//	  max_size_bytes: 20971520
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a YAML rules document.
func ParseRules(data []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
