package redispool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/kv"
	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"
)

// Config for a Redis-backed pool. Defaults can be loaded via envdecode.
type Config struct {
	// Addr like "localhost:6379". ENV: REDIS_ADDR
	Addr string `env:"REDIS_ADDR,default=localhost:6379"`
	// Password for AUTH. ENV: REDIS_PASSWORD
	Password string `env:"REDIS_PASSWORD"`
	// DB index. ENV: REDIS_DB
	DB int `env:"REDIS_DB,default=0"`
	// PoolSize caps concurrently leased connections. ENV: REDIS_POOL_SIZE
	PoolSize int `env:"REDIS_POOL_SIZE,default=10"`
	// DialTimeout bounds connect and the startup ping. ENV: REDIS_DIAL_TIMEOUT
	DialTimeout time.Duration `env:"REDIS_DIAL_TIMEOUT,default=2s"`
}

// Pool hands out dedicated go-redis connections.
type Pool struct {
	client *redis.Client
	owned  bool
	closed atomic.Bool
}

// New dials Redis and verifies it with a PING.
func New(cfg Config) (*Pool, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redispool: redis ping: %w", err)
	}

	return &Pool{client: client, owned: true}, nil
}

// NewFromEnv builds a Pool using envdecode to populate Config.
func NewFromEnv() (*Pool, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("redispool: decode env: %w", err)
	}
	return New(cfg)
}

// NewFromClient wraps an existing client. Close does not close the client.
func NewFromClient(client *redis.Client) *Pool {
	return &Pool{client: client}
}

// Acquire leases a dedicated connection. The network connection itself is
// taken from the client pool on the first command.
func (p *Pool) Acquire(ctx context.Context) (kv.Conn, error) {
	if p.closed.Load() {
		return nil, kv.ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", kv.ErrPoolExhausted, err)
	}
	return &conn{cn: p.client.Conn()}, nil
}

// Stats exposes the go-redis pool counters.
func (p *Pool) Stats() *redis.PoolStats {
	return p.client.PoolStats()
}

// Ping checks backend availability.
func (p *Pool) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close stops handing out leases and closes the client when the pool owns it.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if p.owned {
		return p.client.Close()
	}
	return nil
}

type conn struct {
	cn    *redis.Conn
	lease kv.Lease
}

func (c *conn) Exists(ctx context.Context, key string) (bool, error) {
	if c.lease.Finished() {
		return false, kv.ErrLeaseFinished
	}
	n, err := c.cn.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *conn) HSet(ctx context.Context, key, field string, value []byte) (bool, error) {
	if c.lease.Finished() {
		return false, kv.ErrLeaseFinished
	}
	n, err := c.cn.HSet(ctx, key, field, value).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *conn) HGet(ctx context.Context, key, field string) ([]byte, bool, error) {
	if c.lease.Finished() {
		return nil, false, kv.ErrLeaseFinished
	}
	data, err := c.cn.HGet(ctx, key, field).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (c *conn) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	if c.lease.Finished() {
		return nil, kv.ErrLeaseFinished
	}
	raw, err := c.cn.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(raw))
	for field, value := range raw {
		out[field] = []byte(value)
	}
	return out, nil
}

func (c *conn) HDel(ctx context.Context, key, field string) (bool, error) {
	if c.lease.Finished() {
		return false, kv.ErrLeaseFinished
	}
	n, err := c.cn.HDel(ctx, key, field).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *conn) HExists(ctx context.Context, key, field string) (bool, error) {
	if c.lease.Finished() {
		return false, kv.ErrLeaseFinished
	}
	return c.cn.HExists(ctx, key, field).Result()
}

func (c *conn) Del(ctx context.Context, key string) (bool, error) {
	if c.lease.Finished() {
		return false, kv.ErrLeaseFinished
	}
	n, err := c.cn.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *conn) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if c.lease.Finished() {
		return false, kv.ErrLeaseFinished
	}
	return c.cn.Expire(ctx, key, ttl).Result()
}

func (c *conn) Release() {
	if c.lease.Finish() {
		_ = c.cn.Close()
	}
}

// Discard ends the lease like Release. go-redis offers no way to evict a
// healthy sticky connection, so the guarantee is narrower than kv.Conn's:
// a connection broken at the network or protocol level is dropped by go-redis
// and never handed out again, while one that only returned a server error
// reply (WRONGTYPE, ERR ...) stays in the go-redis pool. Such a reply leaves
// the connection in a clean request/response state.
func (c *conn) Discard() {
	if c.lease.Finish() {
		_ = c.cn.Close()
	}
}

var _ kv.Pool = (*Pool)(nil)
