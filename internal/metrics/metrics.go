// Package metrics exposes Prometheus metrics for ingestion runs and the HTTP API.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns a private registry and every metric registered on it.
// A nil *Manager is valid and records nothing.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
	lastRunSuccess prometheus.Gauge

	sourceAttempts *prometheus.CounterVec
	sourceOutcomes *prometheus.CounterVec
	recordsFetched *prometheus.CounterVec

	enrichments   *prometheus.CounterVec
	enrichLatency prometheus.Histogram
	rowsWritten   *prometheus.CounterVec
	rowsPruned    *prometheus.CounterVec
	rowsRemaining prometheus.Gauge

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace overrides the metric namespace.
func WithNamespace(ns string) Option {
	return func(m *Manager) { m.namespace = ns }
}

// WithGoCollectors registers the Go runtime and process collectors.
func WithGoCollectors() Option {
	return func(m *Manager) {
		m.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
}

// NewManager creates a Manager on a fresh registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{namespace: "jobsync", registry: prometheus.NewRegistry()}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "ingest", Name: "runs_total",
		Help: "Ingestion runs by outcome.",
	}, []string{"status"})
	m.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "ingest", Name: "run_duration_seconds",
		Help:    "Wall time of one ingestion run.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	m.lastRunSuccess = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "ingest", Name: "last_success_timestamp_seconds",
		Help: "Unix time of the last successful run.",
	})

	m.sourceAttempts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "source", Name: "attempts_total",
		Help: "Fetch attempts per source, retries included.",
	}, []string{"source"})
	m.sourceOutcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "source", Name: "units_total",
		Help: "Fetch units per source by outcome.",
	}, []string{"source", "outcome"})
	m.recordsFetched = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "source", Name: "records_total",
		Help: "Records returned per source.",
	}, []string{"source"})

	m.enrichments = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "enrich", Name: "records_total",
		Help: "Records passed through enrichment by outcome (scored, failed, skipped).",
	}, []string{"outcome"})
	m.enrichLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "enrich", Name: "call_duration_seconds",
		Help:    "Scoring call latency, retries included.",
		Buckets: prometheus.DefBuckets,
	})
	m.rowsWritten = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "store", Name: "rows_written_total",
		Help: "Rows upserted by kind (inserted, updated).",
	}, []string{"kind"})
	m.rowsPruned = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "store", Name: "rows_pruned_total",
		Help: "Rows removed by retention by reason.",
	}, []string{"reason"})
	m.rowsRemaining = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "store", Name: "rows",
		Help: "Rows left after the last prune.",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "api", Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method and status code.",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "api", Name: "http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// Registry returns the private registry.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes a snapshot for the node_exporter textfile collector.
func (m *Manager) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// RecordRun records the outcome of one ingestion run.
func (m *Manager) RecordRun(success bool, d time.Duration) {
	if m == nil {
		return
	}
	status := "failed"
	if success {
		status = "success"
		m.lastRunSuccess.SetToCurrentTime()
	}
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.Observe(d.Seconds())
}

// RecordAttempt counts one fetch attempt against source.
func (m *Manager) RecordAttempt(source string) {
	if m == nil {
		return
	}
	m.sourceAttempts.WithLabelValues(source).Inc()
}

// RecordUnit records the final outcome of one fetch unit.
func (m *Manager) RecordUnit(source string, ok bool, records int) {
	if m == nil {
		return
	}
	outcome := "unavailable"
	if ok {
		outcome = "ok"
	}
	m.sourceOutcomes.WithLabelValues(source, outcome).Inc()
	m.recordsFetched.WithLabelValues(source).Add(float64(records))
}

// RecordEnrichment records one enrichment outcome and its latency.
func (m *Manager) RecordEnrichment(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.enrichments.WithLabelValues(outcome).Inc()
	if d > 0 {
		m.enrichLatency.Observe(d.Seconds())
	}
}

// RecordUpsert records rows written by one run.
func (m *Manager) RecordUpsert(inserted, updated int) {
	if m == nil {
		return
	}
	m.rowsWritten.WithLabelValues("inserted").Add(float64(inserted))
	m.rowsWritten.WithLabelValues("updated").Add(float64(updated))
}

// RecordPrune records rows removed by retention.
func (m *Manager) RecordPrune(lowScore, stale, remaining int) {
	if m == nil {
		return
	}
	m.rowsPruned.WithLabelValues("low_score").Add(float64(lowScore))
	m.rowsPruned.WithLabelValues("stale").Add(float64(stale))
	m.rowsRemaining.Set(float64(remaining))
}

// RecordHTTPRequest records one served request.
func (m *Manager) RecordHTTPRequest(endpoint, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(endpoint, method, code).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, code).Observe(d.Seconds())
}
