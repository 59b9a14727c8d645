// Package metrics provides Prometheus metrics for the Holy AI backend
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service
type Metrics struct {
	// Provider metrics
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec

	// Pipeline metrics
	Answers           *prometheus.CounterVec
	StepDuration      *prometheus.HistogramVec
	ContextsRetrieved prometheus.Histogram

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
}

// New creates all metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UpstreamRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "holyai_upstream_requests_total",
			Help: "Total number of provider calls by provider, operation and outcome",
		}, []string{"provider", "operation", "outcome"}),
		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "holyai_upstream_duration_seconds",
			Help:    "Duration of provider calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}, []string{"provider", "operation"}),
		Answers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "holyai_answers_total",
			Help: "Total number of answer pipeline runs by outcome",
		}, []string{"outcome"}),
		StepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "holyai_answer_step_duration_seconds",
			Help:    "Duration of each answer pipeline step in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"step"}),
		ContextsRetrieved: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "holyai_contexts_retrieved",
			Help:    "Number of contexts returned by vector search per answer",
			Buckets: prometheus.LinearBuckets(0, 2, 11),
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "holyai_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
	}
}

// NewNop returns metrics bound to a private registry, for tests and tools
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// ObserveUpstream records one provider call
func (m *Metrics) ObserveUpstream(provider, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.UpstreamRequests.WithLabelValues(provider, operation, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
}

// ObserveStep records the duration of one pipeline step
func (m *Metrics) ObserveStep(step string, start time.Time) {
	if m == nil {
		return
	}
	m.StepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}

// ObserveAnswer records the outcome of one pipeline run
func (m *Metrics) ObserveAnswer(contexts int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.Answers.WithLabelValues("error").Inc()
		return
	}
	m.Answers.WithLabelValues("success").Inc()
	m.ContextsRetrieved.Observe(float64(contexts))
}
