// Package kv declares the key-value capability the session store is written
// against: a [Pool] that hands out exclusive [Conn] leases, and the hash-field
// operations a lease supports.
//
// # Lease lifecycle
//
// A [Conn] is owned by exactly one borrower between [Pool.Acquire] and the first
// call to [Conn.Release] or [Conn.Discard]. Release hands the connection back for
// reuse. Discard drops it so a connection that saw a failure never serves another
// caller. Both are idempotent and only the first call has any effect; [Lease]
// implements that guard for backends.
//
// # Implementations
//
//   - redispool: go-redis dedicated connections.
//   - sqlpool: database/sql connections (SQLite, PostgreSQL).
//   - memkv: in-process store with a bounded set of leases.
//
// # What this package must NOT do
//
//   - Encode or decode attribute values (session owns the codec).
//   - Retry, health-check, or resize pools.
package kv
