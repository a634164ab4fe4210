// Package redispool implements kv.Pool on top of go-redis.
//
// Each lease wraps a dedicated go-redis connection obtained with
// [redis.Client.Conn], so commands issued through one lease never interleave
// with another borrower's. Releasing the lease closes the dedicated handle,
// which returns the underlying network connection to the client's pool.
//
// # Discard semantics
//
// go-redis already removes a network connection from its pool when a command on
// it fails with a transport error, so Discard closes the handle the same way
// Release does: a broken connection is dropped by the client, a connection that
// merely carried a server error reply is healthy and may be reused.
package redispool
