// Package jwt issues and verifies the engine's signed claim sets: short
// access tokens (subject, email, role) and longer refresh tokens (subject
// only), keyed by two distinct server-held HS256 secrets.
//
// The package is stateless by design. There is no revocation store; a
// token stays valid until natural expiry, and rotating a secret
// invalidates every outstanding token signed with it.
package jwt
