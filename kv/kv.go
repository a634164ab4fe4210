package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPoolClosed is returned by Acquire after the pool has been closed.
	ErrPoolClosed = errors.New("kv: pool closed")
	// ErrPoolExhausted is returned when no connection became free before the
	// acquire context ended.
	ErrPoolExhausted = errors.New("kv: pool exhausted")
	// ErrLeaseFinished is returned by operations on a lease that was already
	// released or discarded.
	ErrLeaseFinished = errors.New("kv: lease already finished")
)

// Conn is one exclusively borrowed backend connection.
//
// Missing keys and fields are reported through the boolean results, never as
// errors. Any returned error means the connection may be unhealthy and the
// borrower should Discard it.
type Conn interface {
	// Exists reports whether key holds a live record.
	Exists(ctx context.Context, key string) (bool, error)
	// HSet writes field in the hash at key, creating the hash when needed.
	// It reports whether the field was newly created.
	HSet(ctx context.Context, key, field string, value []byte) (bool, error)
	// HGet reads one field.
	HGet(ctx context.Context, key, field string) ([]byte, bool, error)
	// HGetAll reads every field of the hash at key. A missing key yields an
	// empty map.
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)
	// HDel removes field and reports whether it existed. Removing the last
	// field removes the key.
	HDel(ctx context.Context, key, field string) (bool, error)
	// HExists reports whether field is present in the hash at key.
	HExists(ctx context.Context, key, field string) (bool, error)
	// Del removes key and reports whether it existed.
	Del(ctx context.Context, key string) (bool, error)
	// Expire sets the time-to-live of key and reports whether key existed.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release returns the connection to its pool.
	Release()
	// Discard ends a lease after a failed call. The connection is not returned
	// for reuse unless the implementation documents otherwise.
	Discard()
}

// Pool hands out exclusive connections. Implementations are safe for
// concurrent use.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
	Close() error
}
