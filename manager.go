package goSession

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/session"
)

// Manager owns one session's identity for a single request/response
// exchange. It is not safe for concurrent use and must not outlive the
// exchange.
//
// A Manager starts uninitialized; every attribute operation before [Manager.Init]
// returns [ErrNotInitialized].
type Manager struct {
	engine *Engine
	req    Request
	resp   Response

	id    string
	bound bool
	isNew bool
}

// Init resolves the session id. An inbound id from the request attribute
// named by SessionConfig.CookieName is reused when it has the configured
// length and alphabet; otherwise a fresh id is created with CreateID.
// Calling Init on a bound Manager is a no-op.
func (m *Manager) Init(ctx context.Context) error {
	if m.bound {
		return nil
	}
	e := m.engine
	cfg := e.config.Session

	if m.req != nil {
		if id, ok := m.req.Attribute(cfg.CookieName); ok && id != "" {
			if validID(id, cfg.IDLength) {
				m.bind(id, false)
				e.metrics.Inc(MetricSessionLoaded)
				e.log.Debug().Str("session_id", redactID(id)).Msg("session loaded")
				e.emitAudit(ctx, AuditSessionLoaded, id, nil, nil)
				return nil
			}
			e.metrics.Inc(MetricInvalidInboundID)
			e.log.Debug().Int("length", len(id)).Msg("ignoring malformed inbound session id")
		}
	}

	id, err := m.CreateID(ctx)
	if err != nil {
		return err
	}
	m.bind(id, true)
	e.metrics.Inc(MetricSessionCreated)
	e.log.Debug().Str("session_id", redactID(id)).Msg("session created")
	e.emitAudit(ctx, AuditSessionCreated, id, nil, nil)
	return nil
}

// CreateID returns a fresh id that no record currently uses. It loops until a
// free id is found or ctx ends; each collision is counted. The check and the
// first write are not atomic across processes.
func (m *Manager) CreateID(ctx context.Context) (string, error) {
	return m.engine.createID(ctx)
}

func (m *Manager) bind(id string, isNew bool) {
	m.id = id
	m.bound = true
	m.isNew = isNew
}

// ID returns the bound session id, or "" before Init.
func (m *Manager) ID() string { return m.id }

// Bound reports whether Init completed.
func (m *Manager) Bound() bool { return m.bound }

// IsNew reports whether Init minted the id rather than loading it.
func (m *Manager) IsNew() bool { return m.isNew }

// Get decodes attribute name into dst. It returns false, without touching
// dst, when the attribute is absent. A nil dst only checks presence and
// fetches the value.
func (m *Manager) Get(ctx context.Context, name string, dst any) (bool, error) {
	if !m.bound {
		return false, ErrNotInitialized
	}
	e := m.engine
	defer e.observe(time.Now())

	v, ok, err := e.handler.Get(ctx, m.id, name)
	if err != nil {
		e.recordFailure(ctx, "get", m.id, err)
		return false, err
	}
	e.metrics.Inc(MetricAttributeGet)
	if !ok {
		return false, nil
	}
	if dst != nil {
		if err := v.Decode(dst); err != nil {
			e.recordFailure(ctx, "get", m.id, err)
			return false, err
		}
	}
	return true, nil
}

// GetAs reads attribute name as a T.
func GetAs[T any](ctx context.Context, m *Manager, name string) (T, bool, error) {
	var out T
	ok, err := m.Get(ctx, name, &out)
	return out, ok, err
}

// GetAttributes returns every attribute of the session, still encoded. A
// session without attributes yields an empty map.
func (m *Manager) GetAttributes(ctx context.Context) (map[string]session.Value, error) {
	if !m.bound {
		return nil, ErrNotInitialized
	}
	e := m.engine
	defer e.observe(time.Now())

	attrs, err := e.handler.GetAll(ctx, m.id)
	if err != nil {
		e.recordFailure(ctx, "get_all", m.id, err)
		return nil, err
	}
	return attrs, nil
}

// Set writes attribute name, refreshes the record TTL and then issues the
// session cookie. When the write fails the cookie is still issued if
// SessionConfig.CookieOnFailedWrite is set; the write error is always
// returned.
//
// Every call issues its own cookie, so several Sets in one exchange add
// several Set-Cookie headers carrying the same name and value.
func (m *Manager) Set(ctx context.Context, name string, value any) error {
	if !m.bound {
		return ErrNotInitialized
	}
	e := m.engine
	defer e.observe(time.Now())

	err := e.handler.Set(ctx, m.id, name, value, e.config.Session.MaxLifetime)
	if err != nil {
		e.recordFailure(ctx, "set", m.id, err)
	} else {
		e.metrics.Inc(MetricAttributeSet)
	}

	if err == nil || e.config.Session.CookieOnFailedWrite {
		m.issueCookie(e.maxAge())
	}
	return err
}

// Delete removes attribute name and reports whether it existed.
func (m *Manager) Delete(ctx context.Context, name string) (bool, error) {
	if !m.bound {
		return false, ErrNotInitialized
	}
	e := m.engine
	defer e.observe(time.Now())

	removed, err := e.handler.Delete(ctx, m.id, name)
	if err != nil {
		e.recordFailure(ctx, "delete", m.id, err)
		return false, err
	}
	if removed {
		e.metrics.Inc(MetricAttributeDelete)
	}
	return removed, nil
}

// Clear removes the whole session record and reports whether it existed.
// The id stays bound; a later Set starts a new record under it.
func (m *Manager) Clear(ctx context.Context) (bool, error) {
	if !m.bound {
		return false, ErrNotInitialized
	}
	e := m.engine
	defer e.observe(time.Now())

	removed, err := e.handler.Clear(ctx, m.id)
	if err != nil {
		e.recordFailure(ctx, "clear", m.id, err)
		return false, err
	}
	if removed {
		e.metrics.Inc(MetricSessionCleared)
	}
	e.emitAudit(ctx, AuditSessionCleared, m.id, nil, nil)
	return removed, nil
}

// Has reports whether attribute name is set.
func (m *Manager) Has(ctx context.Context, name string) (bool, error) {
	if !m.bound {
		return false, ErrNotInitialized
	}
	e := m.engine
	defer e.observe(time.Now())

	ok, err := e.handler.Has(ctx, m.id, name)
	if err != nil {
		e.recordFailure(ctx, "has", m.id, err)
		return false, err
	}
	return ok, nil
}

// Exists reports whether the bound session has a record.
func (m *Manager) Exists(ctx context.Context) (bool, error) {
	if !m.bound {
		return false, ErrNotInitialized
	}
	return m.engine.Exists(ctx, m.id)
}

// Destroy clears the record and issues an expiring cookie so the client
// drops the id.
func (m *Manager) Destroy(ctx context.Context) error {
	if !m.bound {
		return ErrNotInitialized
	}
	e := m.engine
	defer e.observe(time.Now())

	removed, err := e.handler.Clear(ctx, m.id)
	if err != nil {
		e.recordFailure(ctx, "destroy", m.id, err)
		return err
	}
	if removed {
		e.metrics.Inc(MetricSessionCleared)
	}
	m.issueCookie(-1)
	e.emitAudit(ctx, AuditSessionDestroyed, m.id, nil, nil)
	return nil
}

func (m *Manager) issueCookie(maxAge int) {
	if m.resp == nil {
		return
	}
	m.resp.SetCookie(m.engine.cookie(m.id, maxAge))
	m.engine.metrics.Inc(MetricCookieIssued)
}
