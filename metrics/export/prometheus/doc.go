// Package prometheus exposes goSession engine metrics through
// prometheus/client_golang.
//
// [Collector] implements prometheus.Collector over Engine.MetricsSnapshot and
// can be registered with any registry. [PrometheusExporter] bundles a private
// registry and an http.Handler for mounting at /metrics. Counters are named
// gosession_*_total; the latency histogram is
// gosession_operation_latency_seconds.
package prometheus
