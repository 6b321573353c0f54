// Package shipauth is the authentication and trust core of the Harborline
// operations backend. It covers credential verification, signed-token
// issuance and rotation, TOTP two-factor authentication with one-time
// backup codes, a per-user trusted-device cache, and role-based
// authorization gating.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// shipauth is the public surface. It exposes [Engine], [Builder], [Config],
// the [UserStore] contract, and value types (LoginResult, TwoFactorSetup,
// MetricsSnapshot, etc.). All internal coordination — flow orchestration,
// device-trust bookkeeping, audit dispatch — lives under internal/ and is
// never exported.
//
// # Statelessness contract
//
// Access and refresh tokens are self-contained signed claim sets. The
// engine keeps no session or revocation state: a leaked refresh token
// remains valid until natural expiry, and rotating either signing secret
// invalidates every outstanding token at once. Both properties are
// deliberate and documented trade-offs, not bugs.
//
// # What this package must NOT do
//
//   - Persist or log a plaintext password, TOTP secret, or backup code.
//   - Reveal through its error surface whether an email is registered,
//     whether a token failure was expiry or forgery, or whether a 2FA
//     failure was caused by a nonexistent account.
//   - Reimplement rate limiting; an upstream gate owns that concern.
package shipauth
