// Package otel publishes tokenAuth engine metrics as OpenTelemetry observable
// instruments.
//
// Each counter becomes an Int64ObservableCounter. The latency histogram is exposed as
// one cumulative gauge per bucket plus _count and _sum gauges. A single callback reads
// the engine snapshot on every collection. Callers own the MeterProvider.
package otel
