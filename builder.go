package goSession

import (
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/kv"
	"github.com/MrEthical07/goSession/kv/redispool"
	"github.com/MrEthical07/goSession/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an [Engine]. It is meant to be configured once during
// startup; Build may only be called once.
//
// When more than one backend is supplied, WithHandler wins over WithPool,
// which wins over WithRedis, regardless of call order.
type Builder struct {
	config Config

	handler session.Handler
	pool    kv.Pool
	redis   *redis.Client
	codec   session.Codec

	idgen     IDGenerator
	auditSink AuditSink
	logger    zerolog.Logger

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithHandler uses h for attribute storage. The engine's key prefix and codec
// settings do not apply to h.
func (b *Builder) WithHandler(h session.Handler) *Builder {
	b.handler = h
	return b
}

// WithPool stores sessions through a [session.Store] over pool.
func (b *Builder) WithPool(pool kv.Pool) *Builder {
	b.pool = pool
	return b
}

// WithRedis stores sessions in Redis using dedicated connections of client.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithCodec sets the attribute codec used with WithPool and WithRedis.
// Defaults to JSON.
func (b *Builder) WithCodec(c session.Codec) *Builder {
	b.codec = c
	return b
}

// WithIDGenerator replaces the default [NanoIDGenerator].
func (b *Builder) WithIDGenerator(g IDGenerator) *Builder {
	b.idgen = g
	return b
}

// WithAuditSink sets the audit destination. Audit must also be enabled in
// Config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. Defaults to zerolog.Nop().
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.logger = l
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the operation latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	handler := b.handler
	if handler == nil {
		pool := b.pool
		if pool == nil && b.redis != nil {
			pool = redispool.NewFromClient(b.redis)
		}
		if pool == nil {
			return nil, ErrMissingBackend
		}
		handler = session.NewStore(pool, session.StoreConfig{
			KeyPrefix: cfg.Session.KeyPrefix,
			Codec:     b.codec,
		})
	}

	idgen := b.idgen
	if idgen == nil {
		idgen = NanoIDGenerator{}
	}

	engine := &Engine{
		config:  cfg,
		handler: handler,
		idgen:   idgen,
		metrics: NewMetrics(cfg.Metrics),
		log:     b.logger.With().Str("component", "gosession").Logger(),
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return engine, nil
}
