// Package metrics provides Prometheus metrics for the onion request core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics holds all Prometheus metrics for the onion driver.
type PrometheusMetrics struct {
	// Transport metrics
	TransportRequestsTotal   *prometheus.CounterVec
	TransportRequestDuration *prometheus.HistogramVec

	// Driver metrics
	InFlightRequests  prometheus.Gauge
	DirectoryRefreshTotal *prometheus.CounterVec
	AggregatorBuckets prometheus.Counter

	// Error metrics
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates and registers all metrics.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	m := &PrometheusMetrics{
		registry: registry,

		TransportRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "onionreq",
				Subsystem: "transport",
				Name:      "requests_total",
				Help:      "Total number of onion requests sent, by transport strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),

		TransportRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "onionreq",
				Subsystem: "transport",
				Name:      "duration_seconds",
				Help:      "Onion request round-trip duration in seconds, by transport strategy",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),

		InFlightRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "onionreq",
				Subsystem: "driver",
				Name:      "in_flight_requests",
				Help:      "Number of onion test requests currently in flight",
			},
		),

		DirectoryRefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "onionreq",
				Subsystem: "directory",
				Name:      "refresh_total",
				Help:      "Total number of node pool refresh attempts, by outcome",
			},
			[]string{"outcome"},
		),

		AggregatorBuckets: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "onionreq",
				Subsystem: "driver",
				Name:      "aggregator_buckets_total",
				Help:      "Total number of aggregation buckets written",
			},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "onionreq",
				Name:      "errors_total",
				Help:      "Total number of errors, by kind",
			},
			[]string{"kind"},
		),

		PanicsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "onionreq",
				Name:      "panics_total",
				Help:      "Total number of panics recovered by the process-wide hook",
			},
		),
	}

	registry.MustRegister(
		m.TransportRequestsTotal,
		m.TransportRequestDuration,
		m.InFlightRequests,
		m.DirectoryRefreshTotal,
		m.AggregatorBuckets,
		m.ErrorsTotal,
		m.PanicsTotal,
	)

	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordTransport records one onion request attempt for a given transport
// strategy and outcome ("success" or "failure").
func (m *PrometheusMetrics) RecordTransport(strategy, outcome string, durationSeconds float64) {
	m.TransportRequestsTotal.WithLabelValues(strategy, outcome).Inc()
	m.TransportRequestDuration.WithLabelValues(strategy).Observe(durationSeconds)
}

// RecordDirectoryRefresh records a node pool refresh attempt.
func (m *PrometheusMetrics) RecordDirectoryRefresh(outcome string) {
	m.DirectoryRefreshTotal.WithLabelValues(outcome).Inc()
}

// RecordError records an error by kind.
func (m *PrometheusMetrics) RecordError(kind string) {
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}
