// Package grant issues and verifies stateless, time-bounded access tokens
// for stored objects.
//
// A grant binds one storage key to an expiry under an HMAC-SHA256 signature;
// nothing is persisted server-side and verification is a pure function of
// the token, the secret, and the clock. Token format:
//
//	base64url(json payload).base64url(signature)
//
// A valid grant is necessary but never sufficient for serving: the serving
// gateway re-checks the object's live lifecycle state, so a grant issued
// before a quarantine or purge stops working the moment the state moves.
//
// Grants are read-only by construction. The scope field is reserved for
// future write or delete capabilities and is rejected if it carries anything
// but read.
package grant
