// Package otel exports goSession engine metrics through an OpenTelemetry
// Meter.
//
// [NewOTelExporter] registers an Int64ObservableCounter per engine counter
// and an Int64ObservableGauge per latency bucket. One callback reads
// Engine.MetricsSnapshot on each collection. Callers own the MeterProvider.
package otel
