// Package password provides argon2id credential hashing in PHC string
// format and the composition policy applied before every hash.
//
// Hashing is deliberately slow and salted; verification uses a
// constant-time comparison. Plaintext passwords are never retained.
package password
