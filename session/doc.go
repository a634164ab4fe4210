// Package session stores per-client attribute bags in a pooled key-value
// backend.
//
// Each session is one hash record under "<prefix><sessionID>". Every
// attribute is a hash field whose value is encoded with a [Codec]. Writes
// refresh the record's TTL.
//
// # Connection discipline
//
// [Store] borrows a [kv.Conn] for every call and finishes it in a deferred
// block: the connection is released on success and discarded on failure so a
// broken connection never goes back to the pool. Nothing is bound to a Store,
// so one Store serves many concurrent sessions. The session id is passed on
// every call.
//
// # Architecture boundaries
//
// This package owns key naming, value encoding and connection lifecycle. It
// does NOT read cookies, mint session ids, or decide when a cookie is issued;
// those belong to the root package.
//
// # What this package must NOT do
//
//   - Import goSession or middleware (no upward imports).
//   - Retry failed backend calls.
//   - Treat a missing field or record as an error.
package session
