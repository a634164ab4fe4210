package goSession

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Split(strings.TrimSpace(string(b.buf)), "\n")
}

func auditConfig() Config {
	cfg := DefaultConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 16
	cfg.Audit.DropIfFull = false
	return cfg
}

func nextEvent(t *testing.T, sink *ChannelSink) AuditEvent {
	t.Helper()
	select {
	case ev := <-sink.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("expected audit event to be received")
	}
	return AuditEvent{}
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	engine, _ := newRedisEngine(t, DefaultConfig(), func(b *Builder) { b.WithAuditSink(sink) })
	ctx := context.Background()

	m, err := engine.Start(ctx, fakeRequest{}, &recordingResponse{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	_, _ = m.Clear(ctx)
	engine.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditLifecycleEvents(t *testing.T) {
	sink := NewChannelSink(16)
	engine, _ := newRedisEngine(t, auditConfig(), func(b *Builder) { b.WithAuditSink(sink) })
	ctx := WithClientIP(context.Background(), "198.51.100.33")

	m, err := engine.Start(ctx, fakeRequest{}, &recordingResponse{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	created := nextEvent(t, sink)
	if created.EventType != AuditSessionCreated || created.SessionID != m.ID() {
		t.Fatalf("unexpected event %+v", created)
	}
	if _, err := uuid.Parse(created.ID); err != nil {
		t.Fatalf("expected uuid event id, got %q", created.ID)
	}
	if created.IP != "198.51.100.33" || !created.Success {
		t.Fatalf("expected successful event from client ip, got %+v", created)
	}
	if created.Timestamp.Location() != time.UTC {
		t.Fatal("expected UTC timestamp")
	}

	_ = m.Set(ctx, "k", "v")
	if _, err := engine.Start(ctx, fakeRequest{"session_id": m.ID()}, &recordingResponse{}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if ev := nextEvent(t, sink); ev.EventType != AuditSessionLoaded {
		t.Fatalf("expected %s, got %s", AuditSessionLoaded, ev.EventType)
	}

	_, _ = m.Clear(ctx)
	if ev := nextEvent(t, sink); ev.EventType != AuditSessionCleared {
		t.Fatalf("expected %s, got %s", AuditSessionCleared, ev.EventType)
	}

	_ = m.Destroy(ctx)
	if ev := nextEvent(t, sink); ev.EventType != AuditSessionDestroyed {
		t.Fatalf("expected %s, got %s", AuditSessionDestroyed, ev.EventType)
	}
}

func TestAuditBackendFailureEvent(t *testing.T) {
	sink := NewChannelSink(16)
	engine, mr := newRedisEngine(t, auditConfig(), func(b *Builder) { b.WithAuditSink(sink) })
	ctx := context.Background()

	m, err := engine.Start(ctx, fakeRequest{}, &recordingResponse{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	_ = nextEvent(t, sink)

	mr.SetError("ERR simulated failure")
	_ = m.Set(ctx, "secret", "value-that-must-not-leak")
	mr.SetError("")

	ev := nextEvent(t, sink)
	if ev.EventType != AuditSessionBackendFailure || ev.Success {
		t.Fatalf("expected failed backend event, got %+v", ev)
	}
	if ev.Metadata["op"] != "set" {
		t.Fatalf("expected op=set metadata, got %v", ev.Metadata)
	}
	if strings.Contains(ev.Error, "value-that-must-not-leak") {
		t.Fatal("attribute value leaked into audit error")
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: AuditSessionCreated,
		SessionID: "abc",
		Success:   true,
	})
	sink.Emit(context.Background(), AuditEvent{EventType: AuditSessionCleared})

	lines := buf.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if decoded["event_type"] != AuditSessionCreated || decoded["session_id"] != "abc" {
		t.Fatalf("unexpected payload %v", decoded)
	}
}

func TestAuditDroppedCountedOnEngine(t *testing.T) {
	cfg := auditConfig()
	cfg.Audit.BufferSize = 1
	cfg.Audit.DropIfFull = true
	gate := make(chan struct{})
	sink := &gateSink{gate: gate}
	engine, _ := newRedisEngine(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })
	t.Cleanup(func() { close(gate) })
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := engine.Start(ctx, fakeRequest{}, nil); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
	}
	if engine.AuditDropped() == 0 {
		t.Fatal("expected dropped events while the sink is blocked")
	}
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}
