package grant

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	// ErrMalformed is returned for tokens that do not parse. Externally all
	// grant errors collapse into a uniform denial; the distinction exists
	// for logs only.
	ErrMalformed = errors.New("malformed grant token")

	// ErrSignatureInvalid is returned when the signature does not verify.
	ErrSignatureInvalid = errors.New("grant signature invalid")

	// ErrExpired is returned for a well-signed grant past its expiry.
	ErrExpired = errors.New("grant expired")

	// ErrEmptySecret is returned when constructing an issuer without a secret.
	ErrEmptySecret = errors.New("grant secret cannot be empty")

	// ErrEmptyKey is returned when issuing a grant for an empty storage key.
	ErrEmptyKey = errors.New("storage key cannot be empty")
)

// ScopeRead is the only scope issued today. The field is reserved for
// future write/delete grants.
const ScopeRead = "read"

// payload is the signed body of a grant token.
type payload struct {
	StorageKey string `json:"key"`
	IssuedAt   int64  `json:"iat"`
	ExpiresAt  int64  `json:"exp"`
	Scope      string `json:"scope"`
}

// Issuer signs and verifies grants with a server-held secret.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithClock overrides the time source, used by tests to cross expiry
// boundaries deterministically.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer creates an issuer over the given secret.
func NewIssuer(secret string, opts ...IssuerOption) (*Issuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	i := &Issuer{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue signs a read grant for the storage key, valid for ttl from now.
// No storage I/O happens here; existence and state of the object are the
// serving gateway's concern.
func (i *Issuer) Issue(storageKey string, ttl time.Duration) (token string, expiresAt time.Time, err error) {
	if storageKey == "" {
		return "", time.Time{}, ErrEmptyKey
	}

	now := i.now().UTC()
	expiresAt = now.Add(ttl)
	data, err := json.Marshal(payload{
		StorageKey: storageKey,
		IssuedAt:   now.Unix(),
		ExpiresAt:  expiresAt.Unix(),
		Scope:      ScopeRead,
	})
	if err != nil {
		return "", time.Time{}, err
	}

	return base64.RawURLEncoding.EncodeToString(data) + "." +
		base64.RawURLEncoding.EncodeToString(i.sign(data)), expiresAt, nil
}

// Verify checks the token's signature, scope, and expiry, and returns the
// storage key it grants access to. Pure in the token and the clock.
func (i *Issuer) Verify(token string) (string, error) {
	encPayload, encSig, ok := strings.Cut(token, ".")
	if !ok {
		return "", ErrMalformed
	}

	data, err := base64.RawURLEncoding.DecodeString(encPayload)
	if err != nil {
		return "", ErrMalformed
	}
	sig, err := base64.RawURLEncoding.DecodeString(encSig)
	if err != nil {
		return "", ErrMalformed
	}

	// Signature first: nothing in an unauthenticated payload is trusted,
	// including its expiry claim.
	if subtle.ConstantTimeCompare(sig, i.sign(data)) != 1 {
		return "", ErrSignatureInvalid
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", ErrMalformed
	}
	if p.StorageKey == "" || p.Scope != ScopeRead {
		return "", ErrMalformed
	}
	if i.now().UTC().Unix() >= p.ExpiresAt {
		return "", ErrExpired
	}

	return p.StorageKey, nil
}

// sign returns the full HMAC-SHA256 of data. Grants gate byte access, so
// the signature is not truncated.
func (i *Issuer) sign(data []byte) []byte {
	h := hmac.New(sha256.New, i.secret)
	h.Write(data)
	return h.Sum(nil)
}
