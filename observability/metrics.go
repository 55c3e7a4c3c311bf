package observability

import (
	"net/http"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GatherOperationsTotal counts Gather calls by outcome (success, error, canceled).
	GatherOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gonuget_gather_operations_total",
			Help: "Total number of gather operations by result",
		},
		[]string{"result"},
	)

	// GatherDuration tracks the wall time of a Gather call.
	GatherDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gonuget_gather_duration_seconds",
			Help:    "Gather duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to 32s
		},
	)

	// GatherPassesTotal counts fixed-point passes across all gathers.
	GatherPassesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gonuget_gather_passes_total",
			Help: "Total number of gather passes",
		},
	)

	// GatherPackagesFound observes the number of candidates a gather returned.
	GatherPackagesFound = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gonuget_gather_packages_found",
			Help:    "Number of package candidates returned per gather",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// SourceQueriesTotal counts dependency info queries by source and result
	// (found, missing, cached, error, skipped).
	SourceQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gonuget_source_queries_total",
			Help: "Total number of dependency info queries by source and result",
		},
		[]string{"source", "result"},
	)

	// SourceQueryDuration tracks dependency info query duration by source.
	SourceQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gonuget_source_query_duration_seconds",
			Help:    "Dependency info query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"source"},
	)

	// UninstallOperationsTotal counts uninstall resolutions by result
	// (success, conflict, not_installed).
	UninstallOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gonuget_uninstall_operations_total",
			Help: "Total number of uninstall resolutions by result",
		},
		[]string{"result"},
	)

	// HTTPRequestsTotal counts HTTP requests by method, status code, and source
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gonuget_http_requests_total",
			Help: "Total number of HTTP requests by method and status",
		},
		[]string{"method", "status_code", "source"},
	)

	// HTTPRequestDuration tracks HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gonuget_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"method", "source"},
	)

	// CacheHitsTotal counts cache hits by cache (http, gather).
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gonuget_cache_hits_total",
			Help: "Total number of cache hits by cache",
		},
		[]string{"cache"},
	)

	// CacheMissesTotal counts cache misses by cache.
	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gonuget_cache_misses_total",
			Help: "Total number of cache misses by cache",
		},
		[]string{"cache"},
	)

	// CircuitBreakerState tracks circuit breaker state by host
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gonuget_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"host"},
	)

	// CircuitBreakerFailures counts circuit breaker failures
	CircuitBreakerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gonuget_circuit_breaker_failures_total",
			Help: "Total number of circuit breaker failures",
		},
		[]string{"host"},
	)

	// RateLimitRequestsTotal counts rate limited requests
	RateLimitRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gonuget_rate_limit_requests_total",
			Help: "Total number of rate limited requests",
		},
		[]string{"source", "allowed"},
	)
)

// MetricsHandler returns an HTTP handler for Prometheus metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// GetCounterValue reads the current value of one labelled counter. Tests use
// it to assert on recorded metrics.
func GetCounterValue(counter *prometheus.CounterVec, labels ...string) (float64, error) {
	metric, err := counter.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0, err
	}

	var pb dto.Metric
	if err := metric.Write(&pb); err != nil {
		return 0, err
	}
	if pb.Counter != nil {
		return pb.Counter.GetValue(), nil
	}
	return 0, nil
}
