// Package memstore provides an in-memory UserStore for tests, examples, and
// single-process deployments.
//
// The store clones records on every read and write, so callers never share
// memory with it. It implements the optional UserDeleter upgrade but not
// DeviceUpserter: concurrent logins from the same account race on the full
// record save and the last writer wins.
package memstore
