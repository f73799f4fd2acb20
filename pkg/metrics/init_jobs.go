package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initJobMetrics() {
	r.JobsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluso_detection_jobs_total",
			Help: "Total number of detection jobs by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	r.JobDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cluso_detection_job_duration_seconds",
			Help:    "Detection job duration in seconds",
			Buckets: []float64{0.01, 0.1, 1.0, 10.0, 60.0, 300.0, 1800.0},
		},
		[]string{"kind"},
	)
}
