// Package metrics exposes Prometheus metrics for ingest and chart activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	IngestRuns    prometheus.Counter
	IngestRecords *prometheus.CounterVec
	IngestErrors  *prometheus.CounterVec

	ChartRebuilds prometheus.Counter
	ChartEntries  prometheus.Gauge

	HTTPRequests *prometheus.CounterVec
}

// New creates a metrics set on its own registry, keeping the default
// registry's Go runtime collectors out of the scrape.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		IngestRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "zapwave",
			Name:      "ingest_runs_total",
			Help:      "Completed ingest runs.",
		}),
		IngestRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zapwave",
			Name:      "ingest_records_total",
			Help:      "Records ingested, by source.",
		}, []string{"source"}),
		IngestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zapwave",
			Name:      "ingest_errors_total",
			Help:      "Ingest failures, by source.",
		}, []string{"source"}),
		ChartRebuilds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "zapwave",
			Name:      "chart_rebuilds_total",
			Help:      "Trending chart rebuilds.",
		}),
		ChartEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "zapwave",
			Name:      "chart_entries",
			Help:      "Entries in the current trending chart.",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zapwave",
			Name:      "http_requests_total",
			Help:      "API requests, by path and status.",
		}, []string{"path", "status"}),
	}
}

// Handler returns the scrape endpoint for this metrics set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
