// Package middleware exposes HTTP middleware adapters for authentication and
// role-based authorization enforcement built on top of shipauth.Engine.
//
// # Guards
//
//   - [Guard] — bearer-token authentication, injects the caller identity.
//   - [RequireRole] — authentication plus a role allowlist check.
//
// Each guard reads the Authorization header, calls Engine.Authenticate, and
// injects the validated identity into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.Authenticate and Engine.Authorize.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Touch the user store (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from the Engine.
package middleware
