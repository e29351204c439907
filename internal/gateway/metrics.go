package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks gateway-level counters on a private registry so tests can
// create servers without duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	references  prometheus.Counter
	bridges     prometheus.Counter
	runDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics with all collectors registered.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctxweave",
			Name:      "requests_total",
			Help:      "Analysis requests by endpoint and status.",
		}, []string{"endpoint", "status"}),
		references: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ctxweave",
			Name:      "references_detected_total",
			Help:      "Dependency references detected across all runs.",
		}),
		bridges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ctxweave",
			Name:      "bridges_emitted_total",
			Help:      "Context bridges emitted across all runs.",
		}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ctxweave",
			Name:      "run_duration_seconds",
			Help:      "Correlation and bridging run duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	reg.MustRegister(
		m.requests,
		m.references,
		m.bridges,
		m.runDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest counts one request against an endpoint with an HTTP status class.
func (m *Metrics) RecordRequest(endpoint, status string) {
	m.requests.WithLabelValues(endpoint, status).Inc()
}

// RecordCorrelation records the outcome of one correlation run.
func (m *Metrics) RecordCorrelation(references int, seconds float64) {
	m.references.Add(float64(references))
	m.runDuration.WithLabelValues("correlate").Observe(seconds)
}

// RecordBridging records the outcome of one bridging run.
func (m *Metrics) RecordBridging(bridges int, seconds float64) {
	m.bridges.Add(float64(bridges))
	m.runDuration.WithLabelValues("bridge").Observe(seconds)
}
