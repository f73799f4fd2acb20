package metrics

import (
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	// Verify all metrics are initialized
	if r.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal not initialized")
	}
	if r.OptimisationPassesTotal == nil {
		t.Error("OptimisationPassesTotal not initialized")
	}
	if r.CommunitiesTotal == nil {
		t.Error("CommunitiesTotal not initialized")
	}
	if r.ProfilesTotal == nil {
		t.Error("ProfilesTotal not initialized")
	}
	if r.JobsTotal == nil {
		t.Error("JobsTotal not initialized")
	}
	if r.SnapshotOperationsTotal == nil {
		t.Error("SnapshotOperationsTotal not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	// Should return the same instance
	r1 := DefaultRegistry()
	r2 := DefaultRegistry()

	if r1 != r2 {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	r := NewRegistry()

	// Record some requests
	r.RecordHTTPRequest("POST", "/api/detect", "200", 100*time.Millisecond)
	r.RecordHTTPRequest("POST", "/api/profile", "202", 200*time.Millisecond)
	r.RecordHTTPRequest("POST", "/api/detect", "400", 50*time.Millisecond)

	// Verify counter was incremented
	counter, err := r.HTTPRequestsTotal.GetMetricWithLabelValues("POST", "/api/detect", "200")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 1 {
		t.Errorf("Counter value = %v, want 1", metric.Counter.GetValue())
	}
}

func TestRecordOptimisationPass(t *testing.T) {
	r := NewRegistry()

	r.RecordOptimisationPass("move", 10*time.Millisecond)
	r.RecordOptimisationPass("move", 20*time.Millisecond)
	r.RecordOptimisationPass("merge", 5*time.Millisecond)

	moveCounter, err := r.OptimisationPassesTotal.GetMetricWithLabelValues("move")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := moveCounter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2 {
		t.Errorf("Move pass counter = %v, want 2", metric.Counter.GetValue())
	}

	mergeCounter, err := r.OptimisationPassesTotal.GetMetricWithLabelValues("merge")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	if err := mergeCounter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 1 {
		t.Errorf("Merge pass counter = %v, want 1", metric.Counter.GetValue())
	}
}

func TestSetCommunities(t *testing.T) {
	r := NewRegistry()

	r.SetCommunities(42)

	var metric dto.Metric
	if err := r.CommunitiesTotal.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Gauge.GetValue() != 42 {
		t.Errorf("Communities gauge = %v, want 42", metric.Gauge.GetValue())
	}
}

func TestSetHierarchyDepth(t *testing.T) {
	r := NewRegistry()

	r.SetHierarchyDepth(3)

	var metric dto.Metric
	if err := r.HierarchyDepth.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Gauge.GetValue() != 3 {
		t.Errorf("Hierarchy depth gauge = %v, want 3", metric.Gauge.GetValue())
	}
}

func TestRecordProfile(t *testing.T) {
	r := NewRegistry()

	r.RecordProfile(17, 2*time.Second)

	var metric dto.Metric
	if err := r.ProfilesTotal.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 1 {
		t.Errorf("Profiles counter = %v, want 1", metric.Counter.GetValue())
	}
}

func TestRecordJob(t *testing.T) {
	r := NewRegistry()

	r.RecordJob("detect", "success", 100*time.Millisecond)
	r.RecordJob("detect", "success", 150*time.Millisecond)
	r.RecordJob("hierarchy", "error", 30*time.Millisecond)

	successCounter, err := r.JobsTotal.GetMetricWithLabelValues("detect", "success")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := successCounter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2 {
		t.Errorf("Success counter = %v, want 2", metric.Counter.GetValue())
	}

	errorCounter, err := r.JobsTotal.GetMetricWithLabelValues("hierarchy", "error")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	if err := errorCounter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 1 {
		t.Errorf("Error counter = %v, want 1", metric.Counter.GetValue())
	}
}

func TestRecordSnapshotOperation(t *testing.T) {
	r := NewRegistry()

	r.RecordSnapshotOperation("write", "success", 10*time.Millisecond)
	r.RecordSnapshotOperation("read", "error", 5*time.Millisecond)

	counter, err := r.SnapshotOperationsTotal.GetMetricWithLabelValues("write", "success")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 1 {
		t.Errorf("Snapshot counter = %v, want 1", metric.Counter.GetValue())
	}
}

func TestRecordAuthFailure(t *testing.T) {
	r := NewRegistry()

	r.RecordAuthFailure()
	r.RecordAuthFailure()

	var metric dto.Metric
	if err := r.AuthFailuresTotal.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2 {
		t.Errorf("Auth failure counter = %v, want 2", metric.Counter.GetValue())
	}
}

func TestMetricNamesHavePrefix(t *testing.T) {
	r := NewRegistry()

	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	// Force at least one sample per vector so Gather sees them
	r.RecordHTTPRequest("GET", "/metrics", "200", time.Millisecond)
	families, err = r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "cluso_") {
			t.Errorf("Metric %q missing cluso_ prefix", mf.GetName())
		}
	}
}

func TestRegistryIsolation(t *testing.T) {
	r1 := NewRegistry()
	r2 := NewRegistry()

	r1.SetCommunities(10)
	r2.SetCommunities(20)

	var m1, m2 dto.Metric
	if err := r1.CommunitiesTotal.Write(&m1); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if err := r2.CommunitiesTotal.Write(&m2); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if m1.Gauge.GetValue() == m2.Gauge.GetValue() {
		t.Error("Separate registries should not share gauges")
	}
}
