package sqlpool

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/kv"
	"github.com/joeshaw/envdecode"
	"github.com/rs/zerolog"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Config for a SQL-backed pool.
type Config struct {
	// Driver is "sqlite3" or "postgres". ENV: SESSION_SQL_DRIVER
	Driver string `env:"SESSION_SQL_DRIVER,default=sqlite3"`
	// DSN passed to sql.Open. ENV: SESSION_SQL_DSN
	DSN string `env:"SESSION_SQL_DSN"`
	// MaxOpenConns caps leased connections. Zero means 1 for sqlite3 and 10
	// for postgres. ENV: SESSION_SQL_MAX_OPEN_CONNS
	MaxOpenConns int `env:"SESSION_SQL_MAX_OPEN_CONNS,default=0"`
	// SweepSchedule is a cron spec for deleting expired rows, e.g. "@every 1m".
	// Empty disables the sweeper. ENV: SESSION_SQL_SWEEP_SCHEDULE
	SweepSchedule string `env:"SESSION_SQL_SWEEP_SCHEDULE"`
}

// ErrInMemoryDSN is returned by Open for SQLite in-memory databases. Every
// database/sql connection to such a DSN sees its own empty database, so the
// schema applied by Migrate and the rows written through one lease would not
// be visible to the next.
var ErrInMemoryDSN = errors.New("sqlpool: in-memory sqlite databases are not supported")

// Option customizes a Pool.
type Option func(*Pool)

// WithClock overrides the clock used for expiry.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the logger used by the sweeper.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pool) { p.log = l }
}

// Pool leases exclusive database connections.
type Pool struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
	log     zerolog.Logger
	sweeper *Sweeper
	closed  atomic.Bool
}

// Open migrates the schema, opens the database and starts the sweeper when a
// schedule is configured.
func Open(cfg Config, opts ...Option) (*Pool, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, errors.New("sqlpool: DSN is required")
	}
	if d.name == DriverSQLite && isMemoryDSN(cfg.DSN) {
		return nil, ErrInMemoryDSN
	}

	if err := Migrate(cfg.Driver, cfg.DSN); err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlpool: open: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
		if d.name == DriverSQLite {
			// sqlite3 allows a single writer.
			maxOpen = 1
		}
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)

	p := &Pool{
		db:      db,
		dialect: d,
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if cfg.SweepSchedule != "" {
		sw, err := NewSweeper(p, cfg.SweepSchedule)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		sw.Start()
		p.sweeper = sw
	}
	return p, nil
}

// isMemoryDSN reports whether dsn names a go-sqlite3 in-memory database.
func isMemoryDSN(dsn string) bool {
	path, query, _ := strings.Cut(dsn, "?")
	path = strings.TrimPrefix(path, "file:")
	if path == ":memory:" || path == "" {
		return true
	}
	for _, opt := range strings.Split(query, "&") {
		if opt == "mode=memory" {
			return true
		}
	}
	return false
}

// NewFromEnv opens a Pool configured from SESSION_SQL_* variables.
func NewFromEnv(opts ...Option) (*Pool, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("sqlpool: decode env: %w", err)
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}
	return Open(cfg, opts...)
}

// Acquire leases one connection. It blocks while MaxOpenConns connections are
// leased, until ctx ends.
func (p *Pool) Acquire(ctx context.Context) (kv.Conn, error) {
	if p.closed.Load() {
		return nil, kv.ErrPoolClosed
	}
	c, err := p.db.Conn(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", kv.ErrPoolExhausted, err)
		}
		if p.closed.Load() {
			return nil, kv.ErrPoolClosed
		}
		return nil, err
	}
	return &conn{pool: p, sc: c}, nil
}

// Ping checks backend availability.
func (p *Pool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Stats exposes database/sql pool counters.
func (p *Pool) Stats() sql.DBStats {
	return p.db.Stats()
}

// Close stops the sweeper and closes the database.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if p.sweeper != nil {
		p.sweeper.Stop()
	}
	return p.db.Close()
}

func (p *Pool) nowMillis() int64 {
	return p.now().UnixMilli()
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	qRecordExpiry = `SELECT expires_at FROM session_records WHERE session_key = ?`
	qLiveCount    = `SELECT COUNT(*) FROM session_records WHERE session_key = ? AND (expires_at = 0 OR expires_at > ?)`
	qEnsureRecord = `INSERT INTO session_records (session_key, expires_at) VALUES (?, 0) ON CONFLICT (session_key) DO NOTHING`
	qFieldCount   = `SELECT COUNT(*) FROM session_fields WHERE session_key = ? AND field = ?`
	qUpsertField  = `INSERT INTO session_fields (session_key, field, value) VALUES (?, ?, ?) ` +
		`ON CONFLICT (session_key, field) DO UPDATE SET value = excluded.value`
	qGetField = `SELECT f.value FROM session_fields f JOIN session_records r ON r.session_key = f.session_key ` +
		`WHERE f.session_key = ? AND f.field = ? AND (r.expires_at = 0 OR r.expires_at > ?)`
	qGetAll = `SELECT f.field, f.value FROM session_fields f JOIN session_records r ON r.session_key = f.session_key ` +
		`WHERE f.session_key = ? AND (r.expires_at = 0 OR r.expires_at > ?)`
	qDeleteField  = `DELETE FROM session_fields WHERE session_key = ? AND field = ?`
	qRemaining    = `SELECT COUNT(*) FROM session_fields WHERE session_key = ?`
	qDeleteFields = `DELETE FROM session_fields WHERE session_key = ?`
	qDeleteRecord = `DELETE FROM session_records WHERE session_key = ?`
	qSetExpiry    = `UPDATE session_records SET expires_at = ? WHERE session_key = ? AND (expires_at = 0 OR expires_at > ?)`
	qSweepFields  = `DELETE FROM session_fields WHERE session_key IN (SELECT session_key FROM session_records WHERE expires_at <> 0 AND expires_at <= ?)`
	qSweepRecords = `DELETE FROM session_records WHERE expires_at <> 0 AND expires_at <= ?`
)

type conn struct {
	pool  *Pool
	sc    *sql.Conn
	lease kv.Lease
}

func (c *conn) q(query string) string {
	return c.pool.dialect.rebind(query)
}

// withTx runs fn in a transaction on the leased connection.
func (c *conn) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.sc.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (c *conn) count(ctx context.Context, q queryer, query string, args ...any) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, c.q(query), args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *conn) live(ctx context.Context, q queryer, key string) (bool, error) {
	n, err := c.count(ctx, q, qLiveCount, key, c.pool.nowMillis())
	return n > 0, err
}

// purgeExpired removes key when its record has expired.
func (c *conn) purgeExpired(ctx context.Context, tx *sql.Tx, key string) error {
	var expiresAt int64
	err := tx.QueryRowContext(ctx, c.q(qRecordExpiry), key).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if expiresAt == 0 || expiresAt > c.pool.nowMillis() {
		return nil
	}
	return c.deleteKey(ctx, tx, key)
}

func (c *conn) deleteKey(ctx context.Context, q queryer, key string) error {
	if _, err := q.ExecContext(ctx, c.q(qDeleteFields), key); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, c.q(qDeleteRecord), key)
	return err
}

func (c *conn) Exists(ctx context.Context, key string) (bool, error) {
	if c.lease.Finished() {
		return false, kv.ErrLeaseFinished
	}
	return c.live(ctx, c.sc, key)
}

func (c *conn) HSet(ctx context.Context, key, field string, value []byte) (bool, error) {
	if c.lease.Finished() {
		return false, kv.ErrLeaseFinished
	}
	if value == nil {
		value = []byte{}
	}
	var created bool
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		if err := c.purgeExpired(ctx, tx, key); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, c.q(qEnsureRecord), key); err != nil {
			return err
		}
		n, err := c.count(ctx, tx, qFieldCount, key, field)
		if err != nil {
			return err
		}
		created = n == 0
		_, err = tx.ExecContext(ctx, c.q(qUpsertField), key, field, value)
		return err
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (c *conn) HGet(ctx context.Context, key, field string) ([]byte, bool, error) {
	if c.lease.Finished() {
		return nil, false, kv.ErrLeaseFinished
	}
	var value []byte
	err := c.sc.QueryRowContext(ctx, c.q(qGetField), key, field, c.pool.nowMillis()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (c *conn) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	if c.lease.Finished() {
		return nil, kv.ErrLeaseFinished
	}
	rows, err := c.sc.QueryContext(ctx, c.q(qGetAll), key, c.pool.nowMillis())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var (
			field string
			value []byte
		)
		if err := rows.Scan(&field, &value); err != nil {
			return nil, err
		}
		out[field] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *conn) HDel(ctx context.Context, key, field string) (bool, error) {
	if c.lease.Finished() {
		return false, kv.ErrLeaseFinished
	}
	var removed bool
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		alive, err := c.live(ctx, tx, key)
		if err != nil || !alive {
			return err
		}
		res, err := tx.ExecContext(ctx, c.q(qDeleteField), key, field)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		removed = affected > 0
		remaining, err := c.count(ctx, tx, qRemaining, key)
		if err != nil {
			return err
		}
		if remaining == 0 {
			_, err = tx.ExecContext(ctx, c.q(qDeleteRecord), key)
		}
		return err
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func (c *conn) HExists(ctx context.Context, key, field string) (bool, error) {
	if c.lease.Finished() {
		return false, kv.ErrLeaseFinished
	}
	_, ok, err := c.HGet(ctx, key, field)
	return ok, err
}

func (c *conn) Del(ctx context.Context, key string) (bool, error) {
	if c.lease.Finished() {
		return false, kv.ErrLeaseFinished
	}
	var removed bool
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		alive, err := c.live(ctx, tx, key)
		if err != nil {
			return err
		}
		removed = alive
		return c.deleteKey(ctx, tx, key)
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func (c *conn) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if c.lease.Finished() {
		return false, kv.ErrLeaseFinished
	}
	now := c.pool.nowMillis()
	if ttl <= 0 {
		return c.Del(ctx, key)
	}
	res, err := c.sc.ExecContext(ctx, c.q(qSetExpiry), now+ttl.Milliseconds(), key, now)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (c *conn) Release() {
	if c.lease.Finish() {
		_ = c.sc.Close()
	}
}

// Discard makes database/sql close the driver connection instead of pooling it.
func (c *conn) Discard() {
	if c.lease.Finish() {
		_ = c.sc.Raw(func(any) error { return driver.ErrBadConn })
	}
}

var _ kv.Pool = (*Pool)(nil)
