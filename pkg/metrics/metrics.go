package metrics

import (
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordOptimisationPass records one optimisation pass of the given routine
func (r *Registry) RecordOptimisationPass(routine string, duration time.Duration) {
	r.OptimisationPassesTotal.WithLabelValues(routine).Inc()
	r.OptimisationPassDuration.WithLabelValues(routine).Observe(duration.Seconds())
}

// SetCommunities updates the community count gauge
func (r *Registry) SetCommunities(n int) {
	r.CommunitiesTotal.Set(float64(n))
}

// SetHierarchyDepth updates the hierarchy level gauge
func (r *Registry) SetHierarchyDepth(levels int) {
	r.HierarchyDepth.Set(float64(levels))
}

// SetGraphSize updates the loaded graph gauges
func (r *Registry) SetGraphSize(nodes, edges int) {
	r.GraphNodesTotal.Set(float64(nodes))
	r.GraphEdgesTotal.Set(float64(edges))
}

// RecordProfile records one completed resolution profile sweep
func (r *Registry) RecordProfile(expansions int, duration time.Duration) {
	r.ProfilesTotal.Inc()
	r.ProfileExpansions.Observe(float64(expansions))
	r.ProfileDuration.Observe(duration.Seconds())
}

// RecordJob records a detection job with its outcome
func (r *Registry) RecordJob(kind, status string, duration time.Duration) {
	r.JobsTotal.WithLabelValues(kind, status).Inc()
	r.JobDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordSnapshotOperation records a snapshot read or write
func (r *Registry) RecordSnapshotOperation(operation, status string, duration time.Duration) {
	r.SnapshotOperationsTotal.WithLabelValues(operation, status).Inc()
	r.SnapshotOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSnapshotSize records the size of a written snapshot
func (r *Registry) RecordSnapshotSize(bytes int64) {
	r.SnapshotSizeBytes.Observe(float64(bytes))
}

// RecordStoreOperation records a result store operation
func (r *Registry) RecordStoreOperation(operation, status string, duration time.Duration) {
	r.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	r.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordExport records a result export with its outcome
func (r *Registry) RecordExport(status string, duration time.Duration) {
	r.ExportsTotal.WithLabelValues(status).Inc()
	r.ExportDuration.Observe(duration.Seconds())
}

// RecordAuthFailure increments the failed authentication counter
func (r *Registry) RecordAuthFailure() {
	r.AuthFailuresTotal.Inc()
}
