package natssink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/joeshaw/envdecode"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Config holds NATS connection settings.
type Config struct {
	URL           string        `env:"NATS_URL,default=nats://localhost:4222"`
	Subject       string        `env:"SESSION_AUDIT_SUBJECT,default=gosession.audit"`
	Name          string        `env:"NATS_CLIENT_NAME,default=gosession"`
	ReconnectWait time.Duration `env:"NATS_RECONNECT_WAIT,default=2s"`
	// MaxReconnects of -1 reconnects forever.
	MaxReconnects int `env:"NATS_MAX_RECONNECTS,default=-1"`
}

// DefaultConfig mirrors the env defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Subject:       "gosession.audit",
		Name:          "gosession",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// ConfigFromEnv reads Config from the environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("natssink config: %w", err)
	}
	if cfg.URL == "" {
		return DefaultConfig(), nil
	}
	return cfg, nil
}

// Publisher is the subset of *nats.Conn used by Sink.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Sink is a goSession.AuditSink.
type Sink struct {
	pub     Publisher
	subject string
	log     zerolog.Logger

	nc        *nats.Conn
	published atomic.Uint64
	failed    atomic.Uint64
}

// Option customizes a Sink.
type Option func(*Sink)

// WithLogger sets the logger used for connection and publish errors.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Sink) { s.log = l }
}

// Connect dials NATS and returns a Sink owning the connection.
func Connect(cfg Config, opts ...Option) (*Sink, error) {
	if cfg.Subject == "" {
		return nil, errors.New("natssink: subject required")
	}
	s := &Sink{subject: cfg.Subject, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			s.log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	s.nc = nc
	s.pub = nc
	return s, nil
}

// New wraps an existing publisher, typically a shared *nats.Conn. The caller
// keeps ownership of pub.
func New(pub Publisher, subject string, opts ...Option) *Sink {
	s := &Sink{pub: pub, subject: subject, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subject returns the subject an event is published to.
func (s *Sink) Subject(event goSession.AuditEvent) string {
	if event.EventType == "" {
		return s.subject
	}
	return s.subject + "." + event.EventType
}

func (s *Sink) Emit(_ context.Context, event goSession.AuditEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		s.failed.Add(1)
		s.log.Error().Err(err).Str("event_type", event.EventType).Msg("encode audit event")
		return
	}
	if err := s.pub.Publish(s.Subject(event), data); err != nil {
		s.failed.Add(1)
		s.log.Error().Err(err).Str("event_type", event.EventType).Msg("publish audit event")
		return
	}
	s.published.Add(1)
}

// Published returns the number of events handed to NATS.
func (s *Sink) Published() uint64 { return s.published.Load() }

// Failed returns the number of events that could not be published.
func (s *Sink) Failed() uint64 { return s.failed.Load() }

// Close flushes and closes the connection when the Sink owns it.
func (s *Sink) Close() error {
	if s.nc == nil {
		return nil
	}
	return s.nc.Drain()
}

var _ goSession.AuditSink = (*Sink)(nil)
