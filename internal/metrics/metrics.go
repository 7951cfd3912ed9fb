// Package metrics holds the Prometheus collectors momentum exports on /api/metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LedgerTransactions counts committed ledger rows by source.
	LedgerTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "momentum_ledger_transactions_total",
		Help: "Committed energy ledger transactions by source",
	}, []string{"source"})

	// StreakResets counts streaks archived by a streak-breaking event.
	StreakResets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "momentum_streak_resets_total",
		Help: "Streaks closed by a streak-breaking event, by event type",
	}, []string{"event_type"})

	// StreakIncrements counts daily increments by whether they applied.
	StreakIncrements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "momentum_streak_increments_total",
		Help: "Daily streak increments by result (applied, duplicate)",
	}, []string{"result"})

	CheckIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "momentum_checkins_total",
		Help: "Merged check-ins",
	})

	// MetricClamps counts self-reported metrics clamped into range, by field.
	MetricClamps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "momentum_metric_clamps_total",
		Help: "Out-of-range check-in metrics clamped into [0,10], by field",
	}, []string{"field"})

	ConsistencyErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "momentum_consistency_errors_total",
		Help: "Users whose cached balance disagreed with the ledger during reconciliation",
	})

	// RefreshDuration tracks discipline snapshot refresh latency.
	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "momentum_refresh_duration_seconds",
		Help:    "Discipline snapshot refresh duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})

	SnapshotUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "momentum_snapshot_users",
		Help: "Users in the current discipline snapshot",
	})
)
