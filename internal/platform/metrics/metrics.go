// Package metrics registers the Prometheus collectors of the credit ledger
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "farm_credit"

// OutcomeSuccess labels operations that completed without error
const OutcomeSuccess = "success"

// CreditOperations counts engine operations by outcome (success or error kind)
var CreditOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "engine",
	Name:      "operations_total",
	Help:      "Credit engine operations by operation and outcome.",
}, []string{"operation", "outcome"})

var CreditOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "engine",
	Name:      "operation_duration_seconds",
	Help:      "Latency of credit engine operations.",
	Buckets:   prometheus.DefBuckets,
}, []string{"operation"})

// CreditGranted sums granted credit in minor currency units
var CreditGranted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "engine",
	Name:      "granted_amount_total",
	Help:      "Total credit granted, in minor currency units.",
})

var ConcurrencyRetries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "engine",
	Name:      "concurrency_retries_total",
	Help:      "Operations retried after an optimistic lock conflict.",
})

var DefaultsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "recovery",
	Name:      "defaults_detected_total",
	Help:      "Defaults created or refreshed by the detection scan, by status.",
}, []string{"status"})

var LedgerDrift = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "engine",
	Name:      "ledger_drift_total",
	Help:      "Profiles whose stored projection disagreed with their ledger.",
})

var NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "notify",
	Name:      "sent_total",
	Help:      "Farmer notifications by outcome.",
}, []string{"outcome"})

var PendingCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "cache",
	Name:      "pending_lookups_total",
	Help:      "Pending payment cache lookups by result (hit, miss, error).",
}, []string{"result"})

var OutboxMessages = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "outbox",
	Name:      "messages_total",
	Help:      "Outbox messages handled by the poller, by outcome.",
}, []string{"outcome"})

var JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "scheduler",
	Name:      "job_runs_total",
	Help:      "Scheduled job runs by job and outcome.",
}, []string{"job", "outcome"})

var JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "scheduler",
	Name:      "job_duration_seconds",
	Help:      "Duration of scheduled job runs.",
	Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
}, []string{"job"})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by method, route and status code.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

// ObserveOperation records one engine operation
func ObserveOperation(operation, outcome string, elapsed time.Duration) {
	CreditOperations.WithLabelValues(operation, outcome).Inc()
	CreditOperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveJob records one scheduled job run
func ObserveJob(job, outcome string, elapsed time.Duration) {
	JobRuns.WithLabelValues(job, outcome).Inc()
	JobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}
