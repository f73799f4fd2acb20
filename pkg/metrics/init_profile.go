package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initProfileMetrics() {
	r.ProfilesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cluso_resolution_profiles_total",
			Help: "Total number of resolution profile sweeps",
		},
	)

	r.ProfileExpansions = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cluso_resolution_profile_expansions",
			Help:    "Resolutions expanded per profile sweep",
			Buckets: []float64{2, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	r.ProfileDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cluso_resolution_profile_duration_seconds",
			Help:    "Duration of one profile sweep in seconds",
			Buckets: []float64{0.01, 0.1, 1.0, 10.0, 60.0, 300.0, 1800.0},
		},
	)
}
