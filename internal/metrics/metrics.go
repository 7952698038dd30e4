// Package metrics exposes extraction counters on a private Prometheus
// registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "airline_extractor"

// Outcome labels for a finished extraction request.
const (
	OutcomeOK       = "ok"
	OutcomeNoData   = "no_data"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

type Metrics struct {
	registry *prometheus.Registry

	extractions *prometheus.CounterVec
	documents   *prometheus.CounterVec
	rows        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	requests    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Extraction requests by airline and outcome.",
		}, []string{"airline", "outcome"}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Processed documents by airline and result (ok, empty, or the failing stage).",
		}, []string{"airline", "result"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Extracted table rows by airline.",
		}, []string{"airline"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Time spent running the extraction pipeline.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"airline"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}

	m.registry.MustRegister(
		m.extractions,
		m.documents,
		m.rows,
		m.duration,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Run records one finished extraction request. A zero elapsed means the
// pipeline never ran, so no duration is observed.
func (m *Metrics) Run(airline, outcome string, rows int, elapsed time.Duration) {
	m.extractions.WithLabelValues(airline, outcome).Inc()
	m.rows.WithLabelValues(airline).Add(float64(rows))
	if elapsed > 0 {
		m.duration.WithLabelValues(airline).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) Document(airline, result string) {
	m.documents.WithLabelValues(airline, result).Inc()
}

// Instrument counts requests served by next.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(m.requests, next)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
