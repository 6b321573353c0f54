// Package redisstore provides a Redis-backed UserStore.
//
// Accounts are stored as JSON records under user:<id> with a plain
// email:<email> identity index. Save and Delete run as Lua scripts so the
// record and its index never diverge. The store implements both optional
// upgrades: UserDeleter, and DeviceUpserter via an atomic server-side
// purge+upsert of the trusted-device set, which closes the concurrent-login
// lost-update window of the read-modify-write path.
package redisstore
