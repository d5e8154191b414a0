// Package metrics defines the Prometheus metric collectors for the index
// build and query paths and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	DocsIndexedTotal  prometheus.Counter
	IndexedTerms      prometheus.Gauge
	BuildDuration     prometheus.Histogram
	QueriesTotal      *prometheus.CounterVec
	QueryLatency      *prometheus.HistogramVec
	QueryResultsCount prometheus.Histogram
	CacheHitsTotal    prometheus.Counter
	CacheMissesTotal  prometheus.Counter
	HTTPRequestsTotal *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents consumed by the index builder.",
			},
		),
		IndexedTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "indexed_terms",
				Help: "Number of distinct terms in the loaded index.",
			},
		),
		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_build_duration_seconds",
				Help:    "Wall time of full index builds in seconds.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queries_total",
				Help: "Total queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "query_latency_seconds",
				Help:    "Query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"cache_status"},
		),
		QueryResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "query_results_count",
				Help:    "Number of document ids returned per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 1000},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
	}

	prometheus.MustRegister(
		m.DocsIndexedTotal,
		m.IndexedTerms,
		m.BuildDuration,
		m.QueriesTotal,
		m.QueryLatency,
		m.QueryResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.HTTPRequestsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
