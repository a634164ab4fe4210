package goSession

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricSessionCreated)

	if got := m.Value(MetricSessionCreated); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricAttributeSet)
	m.Inc(MetricAttributeSet)
	m.Inc(MetricAttributeSet)

	if got := m.Value(MetricAttributeSet); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricSessionCreated)
	m.Observe(MetricOperationLatency, time.Millisecond)
	if m.Value(MetricSessionCreated) != 0 || m.Enabled() {
		t.Fatal("nil metrics must be inert")
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricAttributeGet)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricAttributeGet); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		500 * time.Microsecond,
		2 * time.Millisecond,
		5 * time.Millisecond,
		10 * time.Millisecond,
		20 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		700 * time.Millisecond,
	}

	for _, d := range observations {
		m.Observe(MetricOperationLatency, d)
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricOperationLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsLatencyRequiresFlag(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricOperationLatency, time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricOperationLatency]; ok {
		t.Fatal("histogram must be absent when latency is disabled")
	}
	if _, ok := snap.Counters[MetricOperationLatency]; ok {
		t.Fatal("latency must not appear among counters")
	}
}

func TestEngineMetricsCountManagerOperations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	engine, _ := newRedisEngine(t, cfg)
	ctx := context.Background()

	resp := &recordingResponse{}
	m, err := engine.Start(ctx, fakeRequest{}, resp)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	_ = m.Set(ctx, "a", 1)
	_ = m.Set(ctx, "b", 2)
	_, _ = m.Get(ctx, "a", nil)
	_, _ = m.Delete(ctx, "a")
	_, _ = m.Delete(ctx, "missing")
	_, _ = m.Clear(ctx)

	snap := engine.MetricsSnapshot()
	want := map[MetricID]uint64{
		MetricSessionCreated:  1,
		MetricAttributeSet:    2,
		MetricAttributeGet:    1,
		MetricAttributeDelete: 1,
		MetricSessionCleared:  1,
		MetricCookieIssued:    2,
		MetricBackendFailure:  0,
	}
	for id, v := range want {
		if got := snap.Counters[id]; got != v {
			t.Fatalf("metric %d: expected %d, got %d", id, v, got)
		}
	}

	var observed uint64
	for _, n := range snap.Histograms[MetricOperationLatency] {
		observed += n
	}
	if observed != 6 {
		t.Fatalf("expected 6 latency observations, got %d", observed)
	}
}
