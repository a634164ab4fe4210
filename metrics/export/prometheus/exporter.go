package prometheus

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSource is implemented by *goSession.Engine.
type MetricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

type counterDesc struct {
	id   goSession.MetricID
	desc *promclient.Desc
}

type histogramDesc struct {
	id   goSession.MetricID
	desc *promclient.Desc
}

// Collector reads a snapshot on every scrape. Series are only emitted while
// engine metrics are enabled, except the audit drop counter.
type Collector struct {
	source       MetricsSource
	counters     []counterDesc
	histograms   []histogramDesc
	auditDropped *promclient.Desc
}

// NewCollector describes every engine metric for source.
func NewCollector(source MetricsSource) *Collector {
	c := &Collector{
		source:       source,
		counters:     make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms:   make([]histogramDesc, 0, len(internaldefs.HistogramDefs)),
		auditDropped: promclient.NewDesc(internaldefs.AuditDroppedName, "Audit events dropped under dispatcher backpressure.", nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, counterDesc{id: def.ID, desc: promclient.NewDesc(def.Name, def.Help, nil, nil)})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, histogramDesc{id: def.ID, desc: promclient.NewDesc(def.Name, def.Help, nil, nil)})
	}
	return c
}

func (c *Collector) Describe(ch chan<- *promclient.Desc) {
	for _, d := range c.counters {
		ch <- d.desc
	}
	for _, d := range c.histograms {
		ch <- d.desc
	}
	ch <- c.auditDropped
}

func (c *Collector) Collect(ch chan<- promclient.Metric) {
	if c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()

	for _, d := range c.counters {
		v, ok := snapshot.Counters[d.id]
		if !ok {
			continue
		}
		ch <- promclient.MustNewConstMetric(d.desc, promclient.CounterValue, float64(v))
	}

	for _, d := range c.histograms {
		raw, ok := snapshot.Histograms[d.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, bound := range internaldefs.HistogramUpperBounds {
			buckets[bound] = cumulative[i]
		}
		// The engine keeps no sample sum.
		ch <- promclient.MustNewConstHistogram(d.desc, cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- promclient.MustNewConstMetric(c.auditDropped, promclient.CounterValue, float64(c.source.AuditDropped()))
}

// PrometheusExporter serves engine metrics from a private registry.
type PrometheusExporter struct {
	registry  *promclient.Registry
	collector *Collector
}

// NewPrometheusExporter creates an exporter reading from engine.
func NewPrometheusExporter(engine *goSession.Engine) *PrometheusExporter {
	return NewPrometheusExporterFromSource(engine)
}

func NewPrometheusExporterFromSource(source MetricsSource) *PrometheusExporter {
	registry := promclient.NewRegistry()
	collector := NewCollector(source)
	registry.MustRegister(collector)
	return &PrometheusExporter{registry: registry, collector: collector}
}

// Registry returns the private registry, for adding application collectors.
func (p *PrometheusExporter) Registry() *promclient.Registry {
	return p.registry
}

// Collector returns the engine collector, for registering elsewhere.
func (p *PrometheusExporter) Collector() *Collector {
	return p.collector
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
