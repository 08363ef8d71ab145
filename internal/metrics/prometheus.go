package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice assistant. A nil
// *Metrics is valid and records nothing
type Metrics struct {
	// Pipeline metrics
	Runs          *prometheus.CounterVec
	Failures      *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	RunDuration   prometheus.Histogram

	// Vendor metrics
	SynthesisFailures *prometheus.CounterVec

	// Retention metrics
	RetentionDeleted prometheus.Counter
	RetentionErrors  prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates all metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Pipeline metrics
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome",
		}, []string{"outcome"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_pipeline_failures_total",
			Help: "Total number of failed pipeline runs by error kind",
		}, []string{"kind"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voice_pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}, []string{"stage"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voice_pipeline_run_duration_seconds",
			Help:    "Duration of a full pipeline run",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1 minute
		}),

		// Vendor metrics
		SynthesisFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_synthesis_failures_total",
			Help: "Total number of synthesis failures by provider and status",
		}, []string{"provider", "status"}),

		// Retention metrics
		RetentionDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_retention_deleted_files_total",
			Help: "Total number of stale temp files removed",
		}),
		RetentionErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "voice_retention_errors_total",
			Help: "Total number of failed retention sweeps",
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voice_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordRun records the outcome and total duration of a pipeline run
func (m *Metrics) RecordRun(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(duration.Seconds())
}

// RecordFailure increments the failure counter for an error kind
func (m *Metrics) RecordFailure(kind string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(kind).Inc()
}

// ObserveStage records how long a pipeline stage took
func (m *Metrics) ObserveStage(stage string, duration time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordSynthesisFailure records a vendor synthesis failure
func (m *Metrics) RecordSynthesisFailure(provider string, status int) {
	if m == nil {
		return
	}
	m.SynthesisFailures.WithLabelValues(provider, strconv.Itoa(status)).Inc()
}

// RecordRetention records the result of a retention sweep
func (m *Metrics) RecordRetention(deleted int, err error) {
	if m == nil {
		return
	}
	m.RetentionDeleted.Add(float64(deleted))
	if err != nil {
		m.RetentionErrors.Inc()
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
