package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "internhub_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// NotificationsDelivered counts notifications persisted by type.
	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "internhub_notifications_delivered_total",
			Help: "Total number of notifications written to the store",
		},
		[]string{"type"},
	)

	// ChangeEventsPublished counts change-feed events published per table.
	ChangeEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "internhub_change_events_published_total",
			Help: "Total number of change-feed events published",
		},
		[]string{"table"},
	)

	// InconsistentRowsDropped counts rows discarded by the owner re-validation filter.
	InconsistentRowsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "internhub_inconsistent_rows_dropped_total",
			Help: "Rows dropped because their owner did not match the requesting account",
		},
	)

	// LiveSyncSubscriptions tracks currently held change-feed subscriptions.
	LiveSyncSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "internhub_livesync_subscriptions",
			Help: "Number of active live-sync subscriptions",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "internhub_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
