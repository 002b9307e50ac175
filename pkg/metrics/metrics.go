// Package metrics provides Prometheus metrics for fern migration passes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentsTotal tracks source documents by pass and outcome
	DocumentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "documents_total",
			Help:      "Total number of source documents by pass and outcome",
		},
		[]string{"pass", "outcome"},
	)

	// RowsSkippedTotal tracks size chart rows dropped for lack of values
	RowsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "rows_skipped_total",
			Help:      "Total number of size chart rows skipped",
		},
		[]string{"pass"},
	)

	// PassesTotal tracks completed and aborted passes
	PassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "passes_total",
			Help:      "Total number of migration passes by status",
		},
		[]string{"pass", "status"},
	)

	// PassDuration tracks pass duration in seconds
	PassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "pass_duration_seconds",
			Help:      "Duration of migration passes in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"pass"},
	)

	// GraphWritesTotal tracks graph write statements by operation and result
	GraphWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "graph",
			Name:      "writes_total",
			Help:      "Total number of graph write statements by operation and result",
		},
		[]string{"operation", "result"},
	)

	// GraphUnmatchedTotal tracks link writes whose endpoints were not found
	GraphUnmatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "graph",
			Name:      "unmatched_total",
			Help:      "Total number of link writes that matched no endpoint nodes",
		},
		[]string{"relationship"},
	)

	// PassRunning is 1 while a pass is in progress
	PassRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "pass_running",
			Help:      "Whether a migration pass is currently running",
		},
		[]string{"pass"},
	)
)
