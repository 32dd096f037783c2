// Package metrics exposes Prometheus instruments for the ingestion pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered for one server.
type Metrics struct {
	registry *prometheus.Registry

	Ingest   *prometheus.CounterVec
	Bytes    prometheus.Histogram
	Redraws  prometheus.Counter
	Features prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Ingest: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geojson_ingest_total",
			Help: "Ingestion attempts by channel and result.",
		}, []string{"channel", "result"}),
		Bytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "geojson_ingest_bytes",
			Help:    "Size of successfully ingested documents.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 10),
		}),
		Redraws: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geojson_redraws_total",
			Help: "Redraw requests sent to the map surface.",
		}),
		Features: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "geojson_features",
			Help: "Features in the current collection.",
		}),
	}
	reg.MustRegister(
		m.Ingest, m.Bytes, m.Redraws, m.Features,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
