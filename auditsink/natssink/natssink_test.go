package natssink

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, message{subject: subject, data: data})
	return nil
}

func TestEmitPublishesJSONPerEventType(t *testing.T) {
	pub := &fakePublisher{}
	sink := New(pub, "gosession.audit")

	event := goSession.AuditEvent{
		ID:        "0b6f6c2c-7d4a-4c55-9b7c-2f1f3b8f0a11",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		EventType: goSession.AuditSessionCreated,
		SessionID: "abc",
		Success:   true,
	}
	sink.Emit(context.Background(), event)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "gosession.audit.session_created", pub.msgs[0].subject)

	var decoded goSession.AuditEvent
	require.NoError(t, json.Unmarshal(pub.msgs[0].data, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, event.SessionID, decoded.SessionID)
	assert.True(t, event.Timestamp.Equal(decoded.Timestamp))
	assert.True(t, decoded.Success)
	assert.Equal(t, uint64(1), sink.Published())
	assert.NoError(t, sink.Close())
}

func TestEmitCountsPublishFailures(t *testing.T) {
	sink := New(&fakePublisher{err: errors.New("nats: connection closed")}, "gosession.audit")
	sink.Emit(context.Background(), goSession.AuditEvent{EventType: goSession.AuditSessionCleared})

	assert.Equal(t, uint64(0), sink.Published())
	assert.Equal(t, uint64(1), sink.Failed())
}

func TestSubjectWithoutEventType(t *testing.T) {
	sink := New(&fakePublisher{}, "audit")
	assert.Equal(t, "audit", sink.Subject(goSession.AuditEvent{}))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("NATS_URL", "nats://example:4222")
	t.Setenv("SESSION_AUDIT_SUBJECT", "cart.audit")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "nats://example:4222", cfg.URL)
	assert.Equal(t, "cart.audit", cfg.Subject)
	assert.Equal(t, "gosession", cfg.Name)
	assert.Equal(t, -1, cfg.MaxReconnects)
}

func TestConnectRequiresSubject(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Subject = ""
	_, err := Connect(cfg)
	require.Error(t, err)
}

func TestConnectPublishesToServer(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}

	cfg := DefaultConfig()
	cfg.URL = url
	cfg.Subject = "gosession.test." + time.Now().Format("150405.000000")

	sink, err := Connect(cfg)
	require.NoError(t, err)
	defer sink.Close()

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()
	sub, err := nc.SubscribeSync(cfg.Subject + ".>")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	sink.Emit(context.Background(), goSession.AuditEvent{EventType: goSession.AuditSessionDestroyed, SessionID: "abc"})

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, cfg.Subject+".session_destroyed", msg.Subject)
}
