package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Pipeline metrics
	PipelineRequestsTotal   *prometheus.CounterVec
	PipelineDurationSeconds *prometheus.HistogramVec

	// Result cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// NLU metrics
	NLURequestsTotal   *prometheus.CounterVec
	NLUDurationSeconds *prometheus.HistogramVec

	// Search metrics
	SearchRequestsTotal   *prometheus.CounterVec
	SearchDurationSeconds *prometheus.HistogramVec

	// Knowledge base metrics
	KBLookupsTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Singleflight metrics
	SingleflightDedupTotal *prometheus.CounterVec

	// Fallback metrics
	FallbacksTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// Pipeline metrics
		PipelineRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filkom_pipeline_requests_total",
				Help: "Total number of processed messages by route and status",
			},
			[]string{"route", "status"}, // route: template, search, fallback, cache; status: success, error
		),

		PipelineDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "filkom_pipeline_duration_seconds",
				Help:    "Message processing duration in seconds by route",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"route"},
		),

		// Result cache metrics
		CacheHitsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filkom_cache_hits_total",
				Help: "Total number of cache hits by module",
			},
			[]string{"module"},
		),

		CacheMissesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filkom_cache_misses_total",
				Help: "Total number of cache misses by module",
			},
			[]string{"module"},
		),

		// NLU metrics
		NLURequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filkom_nlu_requests_total",
				Help: "Total number of NLU model calls by operation and status",
			},
			[]string{"operation", "status"}, // operation: intent, entities; status: success, error
		),

		NLUDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "filkom_nlu_duration_seconds",
				Help:    "NLU model call duration in seconds by operation",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"operation"},
		),

		// Search metrics
		SearchRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filkom_search_requests_total",
				Help: "Total number of search requests by mode and status",
			},
			[]string{"mode", "status"}, // mode: hybrid, bm25, semantic; status: success, error, empty
		),

		SearchDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "filkom_search_duration_seconds",
				Help:    "Search duration in seconds by mode",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"mode"},
		),

		// Knowledge base metrics
		KBLookupsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filkom_kb_lookups_total",
				Help: "Total number of knowledge base lookups by entity type and status",
			},
			[]string{"entity_type", "status"}, // status: hit, miss
		),

		// HTTP metrics
		HTTPErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filkom_http_errors_total",
				Help: "Total HTTP errors by type and module",
			},
			[]string{"error_type", "module"}, // error_type: bad_request, timeout, internal, etc.
		),

		// Singleflight metrics
		SingleflightDedupTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filkom_singleflight_dedup_total",
				Help: "Total number of deduplicated requests (requests that waited instead of executing)",
			},
			[]string{"module"},
		),

		// Fallback metrics
		FallbacksTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filkom_fallbacks_total",
				Help: "Total number of fallback responses by reason",
			},
			[]string{"reason"}, // reason: low_confidence, search_empty, error
		),
	}

	return m
}

// RecordPipelineRequest records a processed message with route and status
func (m *Metrics) RecordPipelineRequest(route, status string, duration float64) {
	m.PipelineRequestsTotal.WithLabelValues(route, status).Inc()
	m.PipelineDurationSeconds.WithLabelValues(route).Observe(duration)
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit(module string) {
	m.CacheHitsTotal.WithLabelValues(module).Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss(module string) {
	m.CacheMissesTotal.WithLabelValues(module).Inc()
}

// RecordNLURequest records an NLU model call
func (m *Metrics) RecordNLURequest(operation, status string, duration float64) {
	m.NLURequestsTotal.WithLabelValues(operation, status).Inc()
	m.NLUDurationSeconds.WithLabelValues(operation).Observe(duration)
}

// RecordSearchRequest records a search request
func (m *Metrics) RecordSearchRequest(mode, status string, duration float64) {
	m.SearchRequestsTotal.WithLabelValues(mode, status).Inc()
	m.SearchDurationSeconds.WithLabelValues(mode).Observe(duration)
}

// RecordKBLookup records a knowledge base lookup result
func (m *Metrics) RecordKBLookup(entityType, status string) {
	m.KBLookupsTotal.WithLabelValues(entityType, status).Inc()
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, module string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, module).Inc()
}

// RecordSingleflightDedup records a deduplicated request
func (m *Metrics) RecordSingleflightDedup(module string) {
	m.SingleflightDedupTotal.WithLabelValues(module).Inc()
}

// RecordFallback records a fallback response
func (m *Metrics) RecordFallback(reason string) {
	m.FallbacksTotal.WithLabelValues(reason).Inc()
}
