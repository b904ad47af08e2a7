// Package prometheus renders tokenAuth engine metrics in the Prometheus text
// exposition format.
//
// Counters are named tokenauth_*_total; the latency histogram is
// tokenauth_authenticate_latency_seconds. Nothing is registered globally; callers mount
// [Exporter.Handler] where they want it.
package prometheus
