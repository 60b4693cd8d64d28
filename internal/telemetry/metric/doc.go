// Package metric provides Prometheus metrics for meshview.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Prometheus registry, typed recorders and HTTP handler
//   - collector.go: custom collector reading changefeed statistics
//
// Metrics include:
//
//   - Snapshot inserts and queries per collection
//   - Pending waits and their outcomes
//   - HTTP request counts and latency
//   - Storage engine sizes (registered by the engine itself)
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
