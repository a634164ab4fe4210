package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goSession.MetricSessionCreated, Name: "gosession_session_created_total", Help: "Sessions created with a fresh id."},
	{ID: goSession.MetricSessionLoaded, Name: "gosession_session_loaded_total", Help: "Sessions resumed from an inbound id."},
	{ID: goSession.MetricInvalidInboundID, Name: "gosession_invalid_inbound_id_total", Help: "Inbound ids rejected for their shape."},
	{ID: goSession.MetricIDCollision, Name: "gosession_id_collision_total", Help: "Generated ids that were already in use."},
	{ID: goSession.MetricAttributeSet, Name: "gosession_attribute_set_total", Help: "Successful attribute writes."},
	{ID: goSession.MetricAttributeGet, Name: "gosession_attribute_get_total", Help: "Attribute reads."},
	{ID: goSession.MetricAttributeDelete, Name: "gosession_attribute_delete_total", Help: "Attributes removed."},
	{ID: goSession.MetricSessionCleared, Name: "gosession_session_cleared_total", Help: "Session records removed."},
	{ID: goSession.MetricCookieIssued, Name: "gosession_cookie_issued_total", Help: "Session cookies attached to responses."},
	{ID: goSession.MetricBackendFailure, Name: "gosession_backend_failure_total", Help: "Operations failed by the backend."},
	{ID: goSession.MetricSerializationFailure, Name: "gosession_serialization_failure_total", Help: "Attribute encode and decode failures."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricOperationLatency, Name: "gosession_operation_latency_seconds", Help: "Session operation latency."},
}

// AuditDroppedName is the counter of audit events dropped under backpressure.
const AuditDroppedName = "gosession_audit_dropped_total"

// HistogramUpperBounds are the finite bucket bounds in seconds; the engine
// keeps one extra +Inf bucket.
var HistogramUpperBounds = []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1}

var HistogramBoundSuffix = []string{
	"0_001",
	"0_0025",
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
