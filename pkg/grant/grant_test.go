package grant_test

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fileguard/pkg/grant"
)

const secret = "test-secret-please-rotate"

func TestNewIssuer(t *testing.T) {
	t.Parallel()

	_, err := grant.NewIssuer("")
	assert.ErrorIs(t, err, grant.ErrEmptySecret)

	_, err = grant.NewIssuer(secret)
	assert.NoError(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()
	issuer, err := grant.NewIssuer(secret)
	require.NoError(t, err)

	token, expiresAt, err := issuer.Issue("abc_photo.jpg", 10*time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), expiresAt, time.Minute)

	key, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "abc_photo.jpg", key)

	_, _, err = issuer.Issue("", time.Minute)
	assert.ErrorIs(t, err, grant.ErrEmptyKey)
}

func TestVerifyExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	clock := &now
	issuer, err := grant.NewIssuer(secret, grant.WithClock(func() time.Time { return *clock }))
	require.NoError(t, err)

	token, _, err := issuer.Issue("key", 10*time.Minute)
	require.NoError(t, err)

	// Still valid one second before expiry.
	later := now.Add(10*time.Minute - time.Second)
	clock = &later
	_, err = issuer.Verify(token)
	require.NoError(t, err)

	// The signature still verifies after expiry, but expiry wins.
	after := now.Add(10*time.Minute + time.Second)
	clock = &after
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, grant.ErrExpired)
}

func TestVerifyTamperedPayload(t *testing.T) {
	t.Parallel()
	issuer, err := grant.NewIssuer(secret)
	require.NoError(t, err)

	token, _, err := issuer.Issue("victim-key", time.Minute)
	require.NoError(t, err)

	// Swap the key inside the payload, keep the original signature.
	encPayload, encSig, ok := strings.Cut(token, ".")
	require.True(t, ok)
	data, err := base64.RawURLEncoding.DecodeString(encPayload)
	require.NoError(t, err)

	var p map[string]any
	require.NoError(t, json.Unmarshal(data, &p))
	p["key"] = "attacker-key"
	forged, err := json.Marshal(p)
	require.NoError(t, err)

	_, err = issuer.Verify(base64.RawURLEncoding.EncodeToString(forged) + "." + encSig)
	assert.ErrorIs(t, err, grant.ErrSignatureInvalid)
}

func TestVerifyWrongSecret(t *testing.T) {
	t.Parallel()
	issuer, err := grant.NewIssuer(secret)
	require.NoError(t, err)
	other, err := grant.NewIssuer("a-different-secret")
	require.NoError(t, err)

	token, _, err := issuer.Issue("key", time.Minute)
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, grant.ErrSignatureInvalid)
}

func TestVerifyMalformed(t *testing.T) {
	t.Parallel()
	issuer, err := grant.NewIssuer(secret)
	require.NoError(t, err)

	for _, token := range []string{
		"",
		"no-dot",
		"a.b.c",
		"!!!.???",
		base64.RawURLEncoding.EncodeToString([]byte("not json")) + "." + base64.RawURLEncoding.EncodeToString([]byte("sig")),
	} {
		_, err := issuer.Verify(token)
		assert.Error(t, err, "token %q", token)
	}
}
