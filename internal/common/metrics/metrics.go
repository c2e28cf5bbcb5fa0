// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Webhook outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeHTTPError   = "http_error"
	OutcomeTimeout     = "timeout"
	OutcomeUnreachable = "unreachable"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	NormalizedResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_normalized_responses_total",
			Help: "Webhook replies normalized, by panel and detected shape",
		},
		[]string{"panel", "shape"},
	)

	WebhookRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_webhook_requests_total",
			Help: "Webhook calls by panel and outcome",
		},
		[]string{"panel", "outcome"},
	)

	WebhookDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_webhook_duration_seconds",
			Help:    "Webhook round-trip time in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"panel"},
	)

	HistoryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_history_errors_total",
			Help: "Conversation history store failures by operation",
		},
		[]string{"operation"},
	)
)

// ObserveWebhook records one webhook call.
func ObserveWebhook(panel, outcome string, elapsed time.Duration) {
	WebhookRequests.WithLabelValues(panel, outcome).Inc()
	WebhookDuration.WithLabelValues(panel).Observe(elapsed.Seconds())
}

// ObserveJob records a finished worker job; an empty errorCode means success.
func ObserveJob(taskType, errorCode string, elapsed time.Duration) {
	WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
	if errorCode == "" {
		WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		return
	}
	WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
}
