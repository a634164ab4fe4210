package goSession

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func newRedisEngine(t *testing.T, cfg Config, opts ...func(*Builder)) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	b := New().WithConfig(cfg).WithRedis(rdb)
	for _, opt := range opts {
		opt(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mr
}

type fakeRequest map[string]string

func (r fakeRequest) Attribute(name string) (string, bool) {
	v, ok := r[name]
	return v, ok
}

type recordingResponse struct {
	mu      sync.Mutex
	cookies []*http.Cookie
}

func (r *recordingResponse) SetCookie(c *http.Cookie) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cookies = append(r.cookies, c)
}

func (r *recordingResponse) Cookies() []*http.Cookie {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*http.Cookie(nil), r.cookies...)
}

// stubHandler is a session.Handler with scripted failures.
type stubHandler struct {
	mu        sync.Mutex
	existsErr error
	setErr    error
	taken     map[string]bool
	calls     int
}

func (h *stubHandler) Key(id string) string { return "stub:" + id }

func (h *stubHandler) Exists(_ context.Context, id string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.existsErr != nil {
		return false, h.existsErr
	}
	return h.taken[id], nil
}

func (h *stubHandler) Set(context.Context, string, string, any, time.Duration) error {
	return h.setErr
}

func (h *stubHandler) Get(context.Context, string, string) (session.Value, bool, error) {
	return session.Value{}, false, nil
}

func (h *stubHandler) GetAll(context.Context, string) (map[string]session.Value, error) {
	return map[string]session.Value{}, nil
}

func (h *stubHandler) Delete(context.Context, string, string) (bool, error) { return false, nil }

func (h *stubHandler) Clear(context.Context, string) (bool, error) { return false, nil }

func (h *stubHandler) Has(context.Context, string, string) (bool, error) { return false, nil }

// sequenceGenerator returns ids in order, then repeats the last one.
type sequenceGenerator struct {
	mu  sync.Mutex
	ids []string
}

func (g *sequenceGenerator) Generate(int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.ids[0]
	if len(g.ids) > 1 {
		g.ids = g.ids[1:]
	}
	return id, nil
}
