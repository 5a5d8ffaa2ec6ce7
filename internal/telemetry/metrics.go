package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "review_broker"

var (
	// ─── Dispatcher ──────────────────────────────────────────────────────────────

	TasksSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dispatcher",
		Name:      "submissions_total",
		Help:      "Review submissions, labelled by entry point and outcome (queued, cached, deduplicated, rejected).",
	}, []string{"source", "outcome"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Result cache lookups, labelled by caller and result (hit, miss, error).",
	}, []string{"caller", "result"})

	// ─── Worker ──────────────────────────────────────────────────────────────────

	TasksFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "tasks_finished_total",
		Help:      "Tasks driven to a terminal status by a worker.",
	}, []string{"status"})

	TasksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "tasks_inflight",
		Help:      "Work items currently being processed.",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "queue_depth",
		Help:      "Work items waiting in the queue, sampled on every dequeue.",
	})

	TaskDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "task_duration_seconds",
		Help:      "Time from claiming a work item to its terminal status.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	})

	RetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "retries_total",
		Help:      "Retried collaborator calls, labelled by operation.",
	}, []string{"op"})

	CacheRacesLost = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "cache_races_lost_total",
		Help:      "Analyses discarded because another worker cached the revision first.",
	})

	// ─── Edge ────────────────────────────────────────────────────────────────────

	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "webhook",
		Name:      "deliveries_total",
		Help:      "Webhook deliveries, labelled by outcome (queued, cached, duplicate, ignored, error).",
	}, []string{"outcome"})

	DeliveriesPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "webhook",
		Name:      "deliveries_purged_total",
		Help:      "Expired delivery records removed by the janitor.",
	})

	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the admission guard, labelled by bucket.",
	}, []string{"bucket"})
)
