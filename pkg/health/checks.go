package health

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// StoreCheck probes the result store with a bounded ping
func StoreCheck(ping func(ctx context.Context) error) CheckFunc {
	return func() Check {
		check := Check{Name: "result_store"}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}
		check.Status = StatusHealthy
		check.Message = "connected"
		return check
	}
}

// SnapshotDirCheck verifies the snapshot directory is writable
func SnapshotDirCheck(dir string) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "snapshot_dir",
			Details: map[string]any{"path": dir},
		}
		if dir == "" {
			check.Status = StatusHealthy
			check.Message = "snapshots disabled"
			return check
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}
		probe := filepath.Join(dir, ".health")
		if err := os.WriteFile(probe, nil, 0o644); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}
		os.Remove(probe)
		check.Status = StatusHealthy
		check.Message = "writable"
		return check
	}
}

// MemoryCheck flags runaway heap growth
func MemoryCheck() CheckFunc {
	return func() Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		check.Details["alloc_bytes"] = m.Alloc
		check.Details["sys_bytes"] = m.Sys

		if m.Sys > 0 && float64(m.Alloc)/float64(m.Sys) > 0.9 {
			check.Status = StatusDegraded
			check.Message = "high memory usage"
			return check
		}
		check.Status = StatusHealthy
		check.Message = "memory usage normal"
		return check
	}
}

// AlwaysHealthy is the trivial liveness probe
func AlwaysHealthy(name string) CheckFunc {
	return func() Check {
		return Check{Name: name, Status: StatusHealthy}
	}
}
