// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace is used when the configured namespace is empty.
const DefaultNamespace = "card_market_lab"

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Data access
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
	RowsLoaded    *prometheus.CounterVec

	// Query cache
	CacheRequests      *prometheus.CounterVec
	CacheEntries       prometheus.Gauge
	CacheInvalidations prometheus.Counter

	// Pipeline
	PipelineRunsTotal    *prometheus.CounterVec
	PipelineDuration     prometheus.Histogram
	ObservationsAnalyzed prometheus.Gauge
	MoversComputed       prometheus.Gauge
	ReportsGenerated     *prometheus.CounterVec

	// HTTP
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Health
	LastSuccessfulPipeline prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on its own registry, so
// several instances can coexist in one process (tests, subcommands).
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		QueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "query_duration_seconds",
			Help:      "Source query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source", "query"}),
		QueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "query_errors_total",
			Help:      "Total number of failed source queries",
		}, []string{"source", "query"}),
		RowsLoaded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "rows_loaded_total",
			Help:      "Total number of rows read from the source",
		}, []string{"query"}),

		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Query cache lookups by result",
		}, []string{"query", "result"}),
		CacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Current number of cached query results",
		}),
		CacheInvalidations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Total number of explicit invalidations",
		}),

		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"status"}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ObservationsAnalyzed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "observations_analyzed",
			Help:      "Observations left after date and maturation filters in the last run",
		}),
		MoversComputed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "movers_computed",
			Help:      "Item series with a mover record in the last run",
		}),
		ReportsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of rendered report artifacts by format",
		}, []string{"format"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		LastSuccessfulPipeline: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordQuery records a source query.
func (m *Metrics) RecordQuery(source, query string, d time.Duration, rows int, err error) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(source, query).Observe(d.Seconds())
	if err != nil {
		m.QueryErrors.WithLabelValues(source, query).Inc()
		return
	}
	m.RowsLoaded.WithLabelValues(query).Add(float64(rows))
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(query string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(query, result).Inc()
}

// SetCacheEntries updates the cache size gauge.
func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}

// RecordCacheInvalidation counts an explicit invalidation or purge.
func (m *Metrics) RecordCacheInvalidation() {
	if m == nil {
		return
	}
	m.CacheInvalidations.Inc()
}

// RecordPipelineRun records a pipeline run and, on success, its output sizes.
func (m *Metrics) RecordPipelineRun(d time.Duration, observations, movers int, err error) {
	if m == nil {
		return
	}
	m.PipelineDuration.Observe(d.Seconds())
	if err != nil {
		m.PipelineRunsTotal.WithLabelValues("error").Inc()
		return
	}
	m.PipelineRunsTotal.WithLabelValues("success").Inc()
	m.ObservationsAnalyzed.Set(float64(observations))
	m.MoversComputed.Set(float64(movers))
	m.LastSuccessfulPipeline.SetToCurrentTime()
}

// RecordReport counts a rendered report artifact.
func (m *Metrics) RecordReport(format string) {
	if m == nil {
		return
	}
	m.ReportsGenerated.WithLabelValues(format).Inc()
}

// RecordHTTPRequest records a served request.
func (m *Metrics) RecordHTTPRequest(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}
