package resultstore

import (
	"context"
	"errors"
	"time"
)

// Job kinds
const (
	KindDetect    = "detect"
	KindHierarchy = "hierarchy"
	KindMultiplex = "multiplex"
	KindProfile   = "profile"
)

// Job statuses
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrNotFound is returned when a job result does not exist
var ErrNotFound = errors.New("job result not found")

// JobResult is the stored outcome of one detection job
type JobResult struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	Quality     float64    `json:"quality"`
	Communities int        `json:"communities"`
	Levels      int        `json:"levels,omitempty"`
	Resolution  float64    `json:"resolution,omitempty"`
	Membership  []int      `json:"membership,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMS  int64      `json:"duration_ms,omitempty"`
}

// Store handles job result persistence
type Store interface {
	// SaveResult inserts or replaces a job result
	SaveResult(ctx context.Context, result *JobResult) error

	// GetResult retrieves a result by job id.
	// Returns ErrNotFound if no such job exists.
	GetResult(ctx context.Context, id string) (*JobResult, error)

	// ListResults returns up to limit results, newest first.
	// limit <= 0 returns everything.
	ListResults(ctx context.Context, limit int) ([]*JobResult, error)

	// DeleteResult removes a result by job id
	DeleteResult(ctx context.Context, id string) error

	// Ping checks if the store is accessible
	Ping(ctx context.Context) error

	// Close releases store resources
	Close() error
}
