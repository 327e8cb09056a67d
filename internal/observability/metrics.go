// Package observability provides metrics and tracing for the engine.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SnapshotSaveLatency records durable snapshot save latency.
	SnapshotSaveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "confide_snapshot_save_latency_seconds",
		Help:    "Store image save latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// SnapshotSaveFailures counts snapshot save failures by reason.
	SnapshotSaveFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confide_snapshot_save_failures_total",
		Help: "Total number of store image save failures by reason",
	}, []string{"reason"})

	// SnapshotRecoveries counts images discarded as unreadable on load.
	SnapshotRecoveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confide_snapshot_recoveries_total",
		Help: "Total number of corrupt store images discarded on load",
	})

	// BusEventsEmitted counts events emitted by type.
	BusEventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confide_bus_events_emitted_total",
		Help: "Total number of events emitted by type",
	}, []string{"type"})

	// BusEventsReplayed counts cross-context events replayed locally by type.
	BusEventsReplayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confide_bus_events_replayed_total",
		Help: "Total number of cross-context events replayed by type",
	}, []string{"type"})

	// BusBroadcastErrors counts failed cross-context broadcasts.
	BusBroadcastErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confide_bus_broadcast_errors_total",
		Help: "Total number of cross-context broadcast failures",
	})

	// PollReconciliations counts executed poll-backstop reconciliations.
	PollReconciliations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confide_poll_reconciliations_total",
		Help: "Total number of unread-count poll reconciliations",
	})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confide_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// WebSocketConnections is the gauge of active websocket connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "confide_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})
)

// ObserveSnapshotSave records the latency of a snapshot save.
func ObserveSnapshotSave(start time.Time) {
	SnapshotSaveLatency.Observe(time.Since(start).Seconds())
}
