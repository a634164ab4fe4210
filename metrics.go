package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricSessionCreated counts ids minted by Init.
	MetricSessionCreated MetricID = iota
	// MetricSessionLoaded counts sessions resumed from an inbound id.
	MetricSessionLoaded
	// MetricInvalidInboundID counts inbound ids rejected for their shape.
	MetricInvalidInboundID
	// MetricIDCollision counts generated ids that were already in use.
	MetricIDCollision
	// MetricAttributeSet counts successful writes.
	MetricAttributeSet
	// MetricAttributeGet counts reads, hit or miss.
	MetricAttributeGet
	// MetricAttributeDelete counts field deletions.
	MetricAttributeDelete
	// MetricSessionCleared counts Clear and Destroy calls that removed a record.
	MetricSessionCleared
	// MetricCookieIssued counts cookies attached to responses.
	MetricCookieIssued
	// MetricBackendFailure counts operations failed by the backend.
	MetricBackendFailure
	// MetricSerializationFailure counts encode and decode failures.
	MetricSerializationFailure
	// MetricOperationLatency is the latency histogram of manager operations.
	MetricOperationLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters. A nil or disabled Metrics ignores every
// call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	latency       metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates counters according to cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the latency histogram. Only MetricOperationLatency
// has a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricOperationLatency {
		return
	}
	atomic.AddUint64(&m.latency.buckets[bucketIndex(d)], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. Disabled metrics yield empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if !m.Enabled() {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricOperationLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.latency.buckets[i])
		}
		s.Histograms[MetricOperationLatency] = buckets
	}
	return s
}

// bucketIndex maps d onto upper bounds of 1, 2.5, 5, 10, 25, 50, 100 ms and
// +Inf. Backend calls are expected in the low milliseconds.
func bucketIndex(d time.Duration) int {
	us := d.Microseconds()

	switch {
	case us <= 1000:
		return 0
	case us <= 2500:
		return 1
	case us <= 5000:
		return 2
	case us <= 10000:
		return 3
	case us <= 25000:
		return 4
	case us <= 50000:
		return 5
	case us <= 100000:
		return 6
	default:
		return 7
	}
}
