// Package observability provides logging, metrics, and tracing.
//
// It integrates with OpenTelemetry for system monitoring.
// The package provides comprehensive observability features
// including metrics collection, distributed tracing, and logging.
package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal counts HTTP requests by route, method, and status label.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	// HTTPRequestDuration records request durations by route and method.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	// JobsEnqueuedTotal counts jobs enqueued by type.
	JobsEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_enqueued_total",
			Help: "Total number of jobs enqueued",
		},
		[]string{"type"},
	)
	// JobsProcessing is a gauge of the number of currently processing jobs by type.
	JobsProcessing = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jobs_processing",
			Help: "Number of jobs currently processing",
		},
		[]string{"type"},
	)
	// JobsCompletedTotal counts jobs completed by type.
	JobsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_completed_total",
			Help: "Total number of jobs completed",
		},
		[]string{"type"},
	)
	// JobsFailedTotal counts jobs failed by type.
	JobsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_failed_total",
			Help: "Total number of jobs failed",
		},
		[]string{"type"},
	)

	// CircuitBreakerStatus tracks circuit breaker state.
	CircuitBreakerStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_status",
			Help: "Circuit breaker status (0=closed, 1=open, 2=half-open)",
		},
		[]string{"service", "operation"},
	)

	// MatchesCreatedTotal counts matches created by the goods-match engine,
	// labeled by the resolution path that produced them (unique_winner or
	// vcg_tiebreak).
	MatchesCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matches_created_total",
			Help: "Total number of matches created by the goods-match engine",
		},
		[]string{"resolution"},
	)

	// ErrandsAssignedTotal counts errands created by the assigner.
	ErrandsAssignedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "errands_assigned_total",
			Help: "Total number of errands created by the assigner",
		},
	)

	// MatchTimeoutsTotal counts lifecycle timeout transitions, labeled by
	// window (acceptance or pending).
	MatchTimeoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_timeouts_total",
			Help: "Total number of matches cancelled by a lifecycle timeout",
		},
		[]string{"window"},
	)

	// AutoCompletionsTotal counts matches auto-completed by C8.
	AutoCompletionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auto_completions_total",
			Help: "Total number of matches auto-completed",
		},
	)

	// JobFailuresByCodeTotal breaks job failures down by a coarse failure
	// code, so a dashboard can tell "the DB was down" apart from
	// "a handler panicked" without grepping logs.
	JobFailuresByCodeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_failures_by_code_total",
			Help: "Total number of job failures by job type and failure code",
		},
		[]string{"type", "code"},
	)
)

// InitMetrics registers all Prometheus metrics with the default registry.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(JobsEnqueuedTotal)
	prometheus.MustRegister(JobsProcessing)
	prometheus.MustRegister(JobsCompletedTotal)
	prometheus.MustRegister(JobsFailedTotal)
	prometheus.MustRegister(CircuitBreakerStatus)
	prometheus.MustRegister(MatchesCreatedTotal)
	prometheus.MustRegister(ErrandsAssignedTotal)
	prometheus.MustRegister(MatchTimeoutsTotal)
	prometheus.MustRegister(AutoCompletionsTotal)
	prometheus.MustRegister(JobFailuresByCodeTotal)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			// fallback when route pattern is unavailable
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// EnqueueJob increments the enqueued jobs counter for the given type.
func EnqueueJob(jobType string) {
	JobsEnqueuedTotal.WithLabelValues(jobType).Inc()
}

// StartProcessingJob increments the processing gauge for the given type.
func StartProcessingJob(jobType string) {
	JobsProcessing.WithLabelValues(jobType).Inc()
}

// CompleteJob marks a job complete by decrementing processing gauge and incrementing completed counter.
func CompleteJob(jobType string) {
	JobsProcessing.WithLabelValues(jobType).Dec()
	JobsCompletedTotal.WithLabelValues(jobType).Inc()
}

// FailJob marks a job failed by decrementing processing gauge and incrementing failed counter.
func FailJob(jobType string) {
	JobsProcessing.WithLabelValues(jobType).Dec()
	JobsFailedTotal.WithLabelValues(jobType).Inc()
}

// RecordCircuitBreakerStatus records circuit breaker state.
func RecordCircuitBreakerStatus(service, operation string, status int) {
	CircuitBreakerStatus.WithLabelValues(service, operation).Set(float64(status))
}

// RecordMatchCreated counts one match created via the given resolution
// path ("unique_winner" or "vcg_tiebreak").
func RecordMatchCreated(resolution string) {
	MatchesCreatedTotal.WithLabelValues(resolution).Inc()
}

// RecordErrandAssigned counts one errand created by the assigner.
func RecordErrandAssigned() {
	ErrandsAssignedTotal.Inc()
}

// RecordMatchTimeout counts one lifecycle timeout transition for the
// given window ("acceptance" or "pending").
func RecordMatchTimeout(window string) {
	MatchTimeoutsTotal.WithLabelValues(window).Inc()
}

// RecordAutoCompletion counts one match auto-completed by C8.
func RecordAutoCompletion() {
	AutoCompletionsTotal.Inc()
}

// RecordJobFailureByCode increments FailJob's counter and additionally
// tags the failure with a coarse code (e.g. "DB_UNAVAILABLE",
// "UPSTREAM_TIMEOUT"). An empty code is recorded as "UNKNOWN".
func RecordJobFailureByCode(jobType, code string) {
	FailJob(jobType)
	if code == "" {
		code = "UNKNOWN"
	}
	JobFailuresByCodeTotal.WithLabelValues(jobType, code).Inc()
}
