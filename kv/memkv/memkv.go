// Package memkv is an in-process kv.Pool for tests, demos and single-node
// deployments. Records live in a map guarded by a mutex; the number of
// concurrently leased connections is bounded by Config.Size.
package memkv

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/kv"
)

// Config controls the in-memory pool.
type Config struct {
	// Size is the number of connection slots. Zero means 16.
	Size int
	// Now overrides the clock used for TTL evaluation.
	Now func() time.Time
}

type record struct {
	fields    map[string][]byte
	expiresAt time.Time
}

func (r *record) expired(now time.Time) bool {
	return !r.expiresAt.IsZero() && !now.Before(r.expiresAt)
}

// Store is the in-memory pool.
type Store struct {
	mu      sync.Mutex
	records map[string]*record
	now     func() time.Time
	slots   chan struct{}
	closed  atomic.Bool
	done    chan struct{}
	once    sync.Once
}

// New creates an empty store.
func New(cfg Config) *Store {
	if cfg.Size <= 0 {
		cfg.Size = 16
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Store{
		records: make(map[string]*record),
		now:     cfg.Now,
		slots:   make(chan struct{}, cfg.Size),
		done:    make(chan struct{}),
	}
	for i := 0; i < cfg.Size; i++ {
		s.slots <- struct{}{}
	}
	return s
}

// Acquire blocks until a slot is free, the context ends, or the store closes.
func (s *Store) Acquire(ctx context.Context) (kv.Conn, error) {
	if s.closed.Load() {
		return nil, kv.ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", kv.ErrPoolExhausted, err)
	}
	select {
	case <-s.slots:
		return &conn{store: s}, nil
	case <-s.done:
		return nil, kv.ErrPoolClosed
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", kv.ErrPoolExhausted, ctx.Err())
	}
}

// Close rejects further Acquire calls. Outstanding leases stay usable until
// released.
func (s *Store) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.done)
	})
	return nil
}

// Len reports the number of live records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for _, r := range s.records {
		if !r.expired(now) {
			n++
		}
	}
	return n
}

// lookup returns the live record for key, evicting it when expired.
// Caller holds s.mu.
func (s *Store) lookup(key string) *record {
	r, ok := s.records[key]
	if !ok {
		return nil
	}
	if r.expired(s.now()) {
		delete(s.records, key)
		return nil
	}
	return r
}

type conn struct {
	store *Store
	lease kv.Lease
}

func (c *conn) Exists(_ context.Context, key string) (bool, error) {
	if c.lease.Finished() {
		return false, kv.ErrLeaseFinished
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return c.store.lookup(key) != nil, nil
}

func (c *conn) HSet(_ context.Context, key, field string, value []byte) (bool, error) {
	if c.lease.Finished() {
		return false, kv.ErrLeaseFinished
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	r := c.store.lookup(key)
	if r == nil {
		r = &record{fields: make(map[string][]byte)}
		c.store.records[key] = r
	}
	_, existed := r.fields[field]
	r.fields[field] = append([]byte(nil), value...)
	return !existed, nil
}

func (c *conn) HGet(_ context.Context, key, field string) ([]byte, bool, error) {
	if c.lease.Finished() {
		return nil, false, kv.ErrLeaseFinished
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	r := c.store.lookup(key)
	if r == nil {
		return nil, false, nil
	}
	v, ok := r.fields[field]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (c *conn) HGetAll(_ context.Context, key string) (map[string][]byte, error) {
	if c.lease.Finished() {
		return nil, kv.ErrLeaseFinished
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	r := c.store.lookup(key)
	if r == nil {
		return map[string][]byte{}, nil
	}
	out := make(map[string][]byte, len(r.fields))
	for f, v := range r.fields {
		out[f] = append([]byte(nil), v...)
	}
	return out, nil
}

func (c *conn) HDel(_ context.Context, key, field string) (bool, error) {
	if c.lease.Finished() {
		return false, kv.ErrLeaseFinished
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	r := c.store.lookup(key)
	if r == nil {
		return false, nil
	}
	if _, ok := r.fields[field]; !ok {
		return false, nil
	}
	delete(r.fields, field)
	if len(r.fields) == 0 {
		delete(c.store.records, key)
	}
	return true, nil
}

func (c *conn) HExists(_ context.Context, key, field string) (bool, error) {
	if c.lease.Finished() {
		return false, kv.ErrLeaseFinished
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	r := c.store.lookup(key)
	if r == nil {
		return false, nil
	}
	_, ok := r.fields[field]
	return ok, nil
}

func (c *conn) Del(_ context.Context, key string) (bool, error) {
	if c.lease.Finished() {
		return false, kv.ErrLeaseFinished
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if c.store.lookup(key) == nil {
		return false, nil
	}
	delete(c.store.records, key)
	return true, nil
}

func (c *conn) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if c.lease.Finished() {
		return false, kv.ErrLeaseFinished
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	r := c.store.lookup(key)
	if r == nil {
		return false, nil
	}
	if ttl <= 0 {
		delete(c.store.records, key)
		return true, nil
	}
	r.expiresAt = c.store.now().Add(ttl)
	return true, nil
}

func (c *conn) Release() {
	if c.lease.Finish() {
		c.store.slots <- struct{}{}
	}
}

// Discard returns the slot like Release; there is no connection state to
// throw away.
func (c *conn) Discard() {
	c.Release()
}

var _ kv.Pool = (*Store)(nil)
