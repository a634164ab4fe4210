// Command gosession-loadtest measures session read and write latency against
// a chosen kv backend.
//
//	go run ./cmd/gosession-loadtest -backend redis -sessions 10000
//	go run ./cmd/gosession-loadtest -backend sqlite -ops 20000
//
// The redis backend uses -redis-addr, then REDIS_ADDR, then an in-process
// miniredis.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/kv"
	"github.com/MrEthical07/goSession/kv/memkv"
	"github.com/MrEthical07/goSession/kv/redispool"
	"github.com/MrEthical07/goSession/kv/sqlpool"
	"github.com/MrEthical07/goSession/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	var (
		backend     = flag.String("backend", "redis", "kv backend: redis, memory or sqlite")
		sessions    = flag.Int("sessions", 10000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (read + write)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", session.DefaultKeyPrefix, "session key prefix")
		ttl         = flag.Duration("ttl", 2*time.Hour, "record TTL")
	)
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Str("backend", *backend).Logger()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		log.Fatal().Msg("sessions, concurrency, and ops must be > 0")
	}

	pool, cleanup, err := openPool(*backend, *redisAddr, *concurrency, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open backend")
	}
	defer cleanup()

	ctx := context.Background()
	store := session.NewStore(pool, session.StoreConfig{KeyPrefix: *prefix})

	ids := make([]string, *sessions)
	log.Info().Int("sessions", *sessions).Msg("seeding")
	startSeed := time.Now()
	for i := range ids {
		id, err := internal.RandomAlphanumeric(26)
		if err != nil {
			log.Fatal().Err(err).Msg("generate id")
		}
		ids[i] = id
		if err := store.Set(ctx, id, "cart_count", i, *ttl); err != nil {
			log.Fatal().Err(err).Msg("seed failed")
		}
	}
	log.Info().Dur("elapsed", time.Since(startSeed).Round(time.Millisecond)).Msg("seeded")

	readStats := runPhase(ids, *ops, *concurrency, func(_ *rand.Rand, id string) error {
		v, _, err := store.Get(ctx, id, "cart_count")
		if err != nil {
			return err
		}
		var n int
		return v.Decode(&n)
	})
	writeStats := runPhase(ids, *ops, *concurrency, func(r *rand.Rand, id string) error {
		return store.Set(ctx, id, "cart_count", r.Intn(100), *ttl)
	})

	fmt.Println("---- results ----")
	printStats("read", readStats)
	printStats("write", writeStats)
}

func openPool(backend, redisAddr string, size int, log zerolog.Logger) (kv.Pool, func(), error) {
	switch backend {
	case "memory":
		pool := memkv.New(memkv.Config{Size: size})
		return pool, func() { _ = pool.Close() }, nil

	case "sqlite":
		dir, err := os.MkdirTemp("", "gosession-loadtest")
		if err != nil {
			return nil, nil, err
		}
		dsn := filepath.Join(dir, "sessions.db") + "?_busy_timeout=5000&_journal_mode=WAL"
		pool, err := sqlpool.Open(sqlpool.Config{Driver: sqlpool.DriverSQLite, DSN: dsn}, sqlpool.WithLogger(log))
		if err != nil {
			_ = os.RemoveAll(dir)
			return nil, nil, err
		}
		log.Info().Str("dsn", dsn).Msg("using sqlite")
		return pool, func() {
			_ = pool.Close()
			_ = os.RemoveAll(dir)
		}, nil

	case "redis":
		addr := redisAddr
		if addr == "" {
			addr = os.Getenv("REDIS_ADDR")
		}
		if addr != "" {
			pool, err := redispool.New(redispool.Config{Addr: addr, PoolSize: size})
			if err != nil {
				return nil, nil, err
			}
			log.Info().Str("addr", addr).Msg("using redis")
			return pool, func() { _ = pool.Close() }, nil
		}

		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewClient(&redis.Options{Addr: mr.Addr(), PoolSize: size})
		log.Info().Str("addr", mr.Addr()).Msg("using miniredis")
		return redispool.NewFromClient(client), func() {
			_ = client.Close()
			mr.Close()
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func runPhase(ids []string, ops, concurrency int, op func(r *rand.Rand, id string) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				id := ids[r.Intn(len(ids))]
				t0 := time.Now()
				err := op(r, id)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
