package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_gate_decisions_total",
			Help: "Total number of message events evaluated by the event gate, by decision and reason.",
		},
		[]string{"decision", "reason"},
	)

	JobsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_jobs_enqueued_total",
			Help: "Total number of dispatch jobs published to the queue, by status.",
		},
		[]string{"status"},
	)

	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_jobs_processed_total",
			Help: "Total number of dispatch jobs handled by workers, by outcome.",
		},
		[]string{"outcome"},
	)

	DispatchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_dispatch_attempts_total",
			Help: "Total number of dispatch attempts, by path (multicast, fallback, skipped).",
		},
		[]string{"path"},
	)

	TokenOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_token_outcomes_total",
			Help: "Per-token delivery outcomes, by error code (empty for success).",
		},
		[]string{"error_code"},
	)

	SuccessCountMismatchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "push_success_count_mismatch_total",
		Help: "Batches where the provider-reported success count disagreed with per-token responses.",
	})

	TokensDeactivatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_tokens_deactivated_total",
			Help: "Tokens deactivated after terminal delivery failures, by status.",
		},
		[]string{"status"},
	)

	MulticastDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "push_multicast_duration_seconds",
		Help:    "Duration of multicast calls to the provider.",
		Buckets: prometheus.DefBuckets,
	})

	TokenRegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_token_registrations_total",
			Help: "Device token registration API calls, by operation and status.",
		},
		[]string{"operation", "status"},
	)
)
