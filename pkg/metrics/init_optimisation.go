package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initOptimisationMetrics() {
	r.OptimisationPassesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluso_optimisation_passes_total",
			Help: "Total number of optimisation passes",
		},
		[]string{"routine"},
	)

	r.OptimisationPassDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cluso_optimisation_pass_duration_seconds",
			Help:    "Duration of one optimisation pass in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 30.0, 120.0},
		},
		[]string{"routine"},
	)

	r.CommunitiesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cluso_communities_total",
			Help: "Number of communities in the most recent partition",
		},
	)

	r.HierarchyDepth = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cluso_hierarchy_depth",
			Help: "Number of levels in the most recent hierarchy",
		},
	)

	r.GraphNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cluso_graph_nodes_total",
			Help: "Number of nodes in the loaded graph",
		},
	)

	r.GraphEdgesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cluso_graph_edges_total",
			Help: "Number of edges in the loaded graph",
		},
	)
}
