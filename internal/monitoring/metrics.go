// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valpere/MinwonScrapexter/pkg/types"
)

// Namespace prefixes every metric name
const Namespace = "minwon"

// Metrics holds the crawler's Prometheus collectors on a private registry.
// It satisfies scraper.MetricsRecorder and scraper.RunRecorder.
type Metrics struct {
	registry *prometheus.Registry

	fetchAttempts *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	cacheHits     *prometheus.CounterVec
	records       *prometheus.CounterVec
	pages         *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "fetch_attempts_total",
				Help:      "Page fetch attempts by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Page fetch duration in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"strategy"},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "cache_hits_total",
				Help:      "Document and strategy cache hits",
			},
			[]string{"kind"},
		),
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "records_total",
				Help:      "Processed service records by final error status",
			},
			[]string{"status"},
		),
		pages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "pages_total",
				Help:      "Search result pages by outcome",
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(
		m.fetchAttempts,
		m.fetchDuration,
		m.cacheHits,
		m.records,
		m.pages,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// FetchAttempt records one strategy attempt
func (m *Metrics) FetchAttempt(strategy, outcome string, elapsed time.Duration) {
	m.fetchAttempts.WithLabelValues(strategy, outcome).Inc()
	m.fetchDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// CacheHit records a cache hit of the given kind
func (m *Metrics) CacheHit(kind string) {
	m.cacheHits.WithLabelValues(kind).Inc()
}

// RecordStatus counts a finished record
func (m *Metrics) RecordStatus(status types.ErrorStatus) {
	m.records.WithLabelValues(string(status)).Inc()
}

// PageFetched counts a search result page
func (m *Metrics) PageFetched(outcome string) {
	m.pages.WithLabelValues(outcome).Inc()
}

// Registry exposes the private registry
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
