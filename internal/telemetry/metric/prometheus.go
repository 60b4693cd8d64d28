package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meshview"

// Registry holds all application metrics.
//
// All recorder methods are safe on a nil *Registry, so components can run
// without metrics wired in.
type Registry struct {
	registry *prometheus.Registry

	// Query metrics
	QueriesTotal *prometheus.CounterVec

	// Wait metrics
	PendingQueries prometheus.Gauge
	WaitOutcomes   *prometheus.CounterVec
	WaitDuration   prometheus.Histogram

	// Ingest metrics
	IngestTotal *prometheus.CounterVec

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Relay metrics
	RelayPublished *prometheus.CounterVec
}

// NewRegistry creates a registry with Go runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Snapshot queries by collection and result (hit, miss, error)",
		}, []string{"collection", "result"}),

		PendingQueries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_queries",
			Help:      "Queries currently waiting for a snapshot",
		}),

		WaitOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wait_outcomes_total",
			Help:      "Finished waits by outcome (resolved, timeout, cancelled, error)",
		}, []string{"outcome"}),

		WaitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "wait_duration_seconds",
			Help:      "Time spent waiting for a snapshot",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		IngestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_total",
			Help:      "Snapshot ingest attempts by result (ok, conflict, invalid, error)",
		}, []string{"result"}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		RelayPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_published_total",
			Help:      "Insert notifications forwarded to MQTT by collection and result",
		}, []string{"collection", "result"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.QueriesTotal,
		r.PendingQueries,
		r.WaitOutcomes,
		r.WaitDuration,
		r.IngestTotal,
		r.RequestsTotal,
		r.RequestDuration,
		r.RelayPublished,
	)

	return r
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Handler returns the /metrics handler of the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		Registry: r.registry,
	})
}

// Registerer exposes the underlying registry for components that register
// their own collectors (storage engines, Collector).
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordQuery counts a store query. result is hit, miss or error.
func (r *Registry) RecordQuery(collection, result string) {
	if r == nil {
		return
	}
	r.QueriesTotal.WithLabelValues(collection, result).Inc()
}

// IncPending marks a query as waiting.
func (r *Registry) IncPending() {
	if r == nil {
		return
	}
	r.PendingQueries.Inc()
}

// DecPending marks a waiting query as finished.
func (r *Registry) DecPending() {
	if r == nil {
		return
	}
	r.PendingQueries.Dec()
}

// RecordWait records a finished wait.
func (r *Registry) RecordWait(outcome string, seconds float64) {
	if r == nil {
		return
	}
	r.WaitOutcomes.WithLabelValues(outcome).Inc()
	r.WaitDuration.Observe(seconds)
}

// RecordIngest counts an ingest attempt.
func (r *Registry) RecordIngest(result string) {
	if r == nil {
		return
	}
	r.IngestTotal.WithLabelValues(result).Inc()
}

// RecordRequest counts an HTTP request.
func (r *Registry) RecordRequest(method, route, status string) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(method, route, status).Inc()
}

// ObserveRequestDuration records HTTP request latency.
func (r *Registry) ObserveRequestDuration(method, route string, seconds float64) {
	if r == nil {
		return
	}
	r.RequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// RecordRelayPublish counts a relay publish. result is ok or error.
func (r *Registry) RecordRelayPublish(collection, result string) {
	if r == nil {
		return
	}
	r.RelayPublished.WithLabelValues(collection, result).Inc()
}
