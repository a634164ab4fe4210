package goSession

import (
	"io"

	"github.com/MrEthical07/goSession/internal/audit"
)

// Audit event types emitted by the Engine.
const (
	AuditSessionCreated        = "session_created"
	AuditSessionLoaded         = "session_loaded"
	AuditSessionCleared        = "session_cleared"
	AuditSessionDestroyed      = "session_destroyed"
	AuditSessionBackendFailure = "session_backend_failure"
)

// AuditEvent is one session lifecycle record.
type AuditEvent = audit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink forwards audit events into a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing JSON lines to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}
