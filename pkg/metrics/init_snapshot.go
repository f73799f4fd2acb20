package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSnapshotMetrics() {
	r.SnapshotOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluso_snapshot_operations_total",
			Help: "Total number of snapshot operations",
		},
		[]string{"operation", "status"},
	)

	r.SnapshotOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cluso_snapshot_operation_duration_seconds",
			Help:    "Snapshot operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"operation"},
	)

	r.SnapshotSizeBytes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cluso_snapshot_size_bytes",
			Help:    "Snapshot file size in bytes",
			Buckets: []float64{1000, 10000, 100000, 1000000, 10000000, 100000000},
		},
	)
}
