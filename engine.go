package goSession

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine mints per-request [Manager]s. It is safe for concurrent use once
// built by [Builder.Build].
type Engine struct {
	config  Config
	handler session.Handler
	idgen   IDGenerator
	metrics *Metrics
	audit   *audit.Dispatcher
	log     zerolog.Logger
}

// Pinger is implemented by handlers that can report backend latency, such as
// [session.Store].
type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// NewManager returns an uninitialized Manager bound to one exchange.
func (e *Engine) NewManager(req Request, resp Response) *Manager {
	return &Manager{engine: e, req: req, resp: resp}
}

// Start is NewManager followed by Init.
func (e *Engine) Start(ctx context.Context, req Request, resp Response) (*Manager, error) {
	m := e.NewManager(req, resp)
	if err := m.Init(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Exists reports whether a record exists for sessionID.
func (e *Engine) Exists(ctx context.Context, sessionID string) (bool, error) {
	exists, err := e.handler.Exists(ctx, sessionID)
	if err != nil {
		e.recordFailure(ctx, "exists", sessionID, err)
	}
	return exists, err
}

// Key returns the backend key for sessionID.
func (e *Engine) Key(sessionID string) string {
	return e.handler.Key(sessionID)
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Handler returns the attribute store used by managers.
func (e *Engine) Handler() session.Handler {
	return e.handler
}

// Ping reports backend round-trip time when the handler supports it.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	p, ok := e.handler.(Pinger)
	if !ok {
		return 0, errors.New("session handler does not support ping")
	}
	return p.Ping(ctx)
}

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

// Close flushes and stops the audit dispatcher. Pools passed to the Builder
// stay owned by the caller.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// createID generates ids until one is unused. A backend failure aborts and is
// returned unchanged.
func (e *Engine) createID(ctx context.Context) (string, error) {
	length := e.config.Session.IDLength
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		id, err := e.idgen.Generate(length)
		if err != nil {
			return "", fmt.Errorf("generate session id: %w", err)
		}

		taken, err := e.handler.Exists(ctx, id)
		if err != nil {
			e.recordFailure(ctx, "create_id", id, err)
			return "", err
		}
		if !taken {
			return id, nil
		}

		e.metrics.Inc(MetricIDCollision)
		e.log.Warn().Str("session_id", redactID(id)).Msg("generated session id already in use")
	}
}

func (e *Engine) cookie(id string, maxAge int) *http.Cookie {
	c := e.config.Cookie
	return &http.Cookie{
		Name:     e.config.Session.CookieName,
		Value:    id,
		Path:     c.Path,
		Domain:   c.Domain,
		MaxAge:   maxAge,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
		SameSite: c.SameSite,
	}
}

func (e *Engine) maxAge() int {
	return int(e.config.Session.MaxLifetime / time.Second)
}

// recordFailure counts, logs and audits a failed backend operation.
func (e *Engine) recordFailure(ctx context.Context, op, sessionID string, err error) {
	if errors.Is(err, session.ErrSerialization) {
		e.metrics.Inc(MetricSerializationFailure)
		e.log.Debug().Err(err).Str("op", op).Str("session_id", redactID(sessionID)).Msg("session value serialization failed")
		return
	}

	e.metrics.Inc(MetricBackendFailure)
	e.log.Error().Err(err).Str("op", op).Str("session_id", redactID(sessionID)).Msg("session backend failure")
	e.emitAudit(ctx, AuditSessionBackendFailure, sessionID, err, map[string]string{"op": op})
}

func (e *Engine) emitAudit(ctx context.Context, eventType, sessionID string, err error, metadata map[string]string) {
	if e.audit == nil {
		return
	}
	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   err == nil,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}
	e.audit.Emit(ctx, event)
}

func (e *Engine) observe(start time.Time) {
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricOperationLatency, time.Since(start))
	}
}

// redactID keeps logs from carrying usable session ids.
func redactID(id string) string {
	const keep = 6
	if len(id) <= keep {
		return id
	}
	return id[:keep] + "..."
}
