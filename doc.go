// Package goSession manages server-side session state stored in a pooled
// key-value backend and bound to clients through a cookie.
//
// An [Engine] is built once with [Builder] and is safe for concurrent use.
// For every request it mints a [Manager], which resolves the session id from
// the inbound cookie (or creates a fresh, collision-checked one) and exposes
// Get/Set/Delete/Clear/Has over that session's attributes. Every Set issues
// the session cookie on the response.
//
// # Architecture boundaries
//
// goSession owns session identity and cookie issuance. Attribute storage is
// delegated to a [session.Handler]; the default [session.Store] borrows a
// connection from a [kv.Pool] for each call. Backends live under kv/.
//
// # What this package must NOT do
//
//   - Authenticate users or encrypt attribute values.
//   - Retry failed backend calls.
//   - Share a Manager between requests.
package goSession
