package session

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/kv"
)

// DefaultKeyPrefix namespaces session records.
const DefaultKeyPrefix = "SESSION:"

const pingField = "__ping__"

// Handler is the attribute storage consumed by the session manager.
// Implementations must treat a missing record or field as absence, never as an
// error.
type Handler interface {
	// Key returns the backend key for sessionID. Pure; no I/O.
	Key(sessionID string) string
	Exists(ctx context.Context, sessionID string) (bool, error)
	// Set writes one field and resets the record TTL.
	Set(ctx context.Context, sessionID, field string, value any, ttl time.Duration) error
	Get(ctx context.Context, sessionID, field string) (Value, bool, error)
	// GetAll returns an empty, non-nil map for a missing record.
	GetAll(ctx context.Context, sessionID string) (map[string]Value, error)
	Delete(ctx context.Context, sessionID, field string) (bool, error)
	// Clear removes the record and all of its fields.
	Clear(ctx context.Context, sessionID string) (bool, error)
	Has(ctx context.Context, sessionID, field string) (bool, error)
}

// StoreConfig configures a [Store]. Zero fields take defaults.
type StoreConfig struct {
	KeyPrefix string
	Codec     Codec
}

// Store is the pooled [Handler]. It is safe for concurrent use.
type Store struct {
	pool   kv.Pool
	prefix string
	codec  Codec
}

// NewStore creates a Store borrowing connections from pool.
func NewStore(pool kv.Pool, cfg StoreConfig) *Store {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.Codec == nil {
		cfg.Codec = JSONCodec{}
	}
	return &Store{
		pool:   pool,
		prefix: cfg.KeyPrefix,
		codec:  cfg.Codec,
	}
}

// Key returns prefix + sessionID.
func (s *Store) Key(sessionID string) string {
	return s.prefix + sessionID
}

// Codec returns the codec used for attribute values.
func (s *Store) Codec() Codec {
	return s.codec
}

// withConn runs fn on a borrowed connection. The connection is released when
// fn succeeds and discarded otherwise. fn runs under a context that ignores
// cancellation so an in-flight call completes or hits the backend timeout.
func (s *Store) withConn(ctx context.Context, fn func(ctx context.Context, c kv.Conn) error) (err error) {
	c, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer func() {
		if err != nil {
			c.Discard()
			return
		}
		c.Release()
	}()

	if err := fn(context.WithoutCancel(ctx), c); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Exists reports whether the session record exists.
//
//	Performance: 1 backend call.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := s.withConn(ctx, func(ctx context.Context, c kv.Conn) error {
		var err error
		exists, err = c.Exists(ctx, s.Key(sessionID))
		return err
	})
	return exists, err
}

// Set encodes value, writes it to field and resets the record TTL. A ttl of
// zero or less leaves the expiry untouched.
//
//	Performance: 2 backend calls (HSET + EXPIRE).
func (s *Store) Set(ctx context.Context, sessionID, field string, value any, ttl time.Duration) error {
	data, err := s.codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	key := s.Key(sessionID)
	return s.withConn(ctx, func(ctx context.Context, c kv.Conn) error {
		if _, err := c.HSet(ctx, key, field, data); err != nil {
			return err
		}
		if ttl <= 0 {
			return nil
		}
		_, err := c.Expire(ctx, key, ttl)
		return err
	})
}

// Get reads one field. The bool is false when the field or record is absent.
func (s *Store) Get(ctx context.Context, sessionID, field string) (Value, bool, error) {
	var (
		data  []byte
		found bool
	)
	err := s.withConn(ctx, func(ctx context.Context, c kv.Conn) error {
		var err error
		data, found, err = c.HGet(ctx, s.Key(sessionID), field)
		return err
	})
	if err != nil || !found {
		return Value{}, false, err
	}
	return Value{data: data, codec: s.codec}, true, nil
}

// GetAll reads every field of the record.
func (s *Store) GetAll(ctx context.Context, sessionID string) (map[string]Value, error) {
	var raw map[string][]byte
	err := s.withConn(ctx, func(ctx context.Context, c kv.Conn) error {
		var err error
		raw, err = c.HGetAll(ctx, s.Key(sessionID))
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]Value, len(raw))
	for field, data := range raw {
		out[field] = Value{data: data, codec: s.codec}
	}
	return out, nil
}

// Delete removes one field and reports whether it existed.
func (s *Store) Delete(ctx context.Context, sessionID, field string) (bool, error) {
	var removed bool
	err := s.withConn(ctx, func(ctx context.Context, c kv.Conn) error {
		var err error
		removed, err = c.HDel(ctx, s.Key(sessionID), field)
		return err
	})
	return removed, err
}

// Clear deletes the whole record and reports whether it existed.
func (s *Store) Clear(ctx context.Context, sessionID string) (bool, error) {
	var removed bool
	err := s.withConn(ctx, func(ctx context.Context, c kv.Conn) error {
		var err error
		removed, err = c.Del(ctx, s.Key(sessionID))
		return err
	})
	return removed, err
}

// Has reports whether field is set.
func (s *Store) Has(ctx context.Context, sessionID, field string) (bool, error) {
	var ok bool
	err := s.withConn(ctx, func(ctx context.Context, c kv.Conn) error {
		var err error
		ok, err = c.HExists(ctx, s.Key(sessionID), field)
		return err
	})
	return ok, err
}

// Ping borrows a connection, issues one read and reports the round-trip time.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	err := s.withConn(ctx, func(ctx context.Context, c kv.Conn) error {
		_, err := c.HExists(ctx, s.Key(pingField), pingField)
		return err
	})
	if err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

var _ Handler = (*Store)(nil)
