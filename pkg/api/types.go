package api

import "time"

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// DetectResponse reports a completed flat detection
type DetectResponse struct {
	JobID       string  `json:"job_id"`
	Quality     float64 `json:"quality"`
	Communities int     `json:"communities"`
	Resolution  float64 `json:"resolution"`
	Membership  []int   `json:"membership"`
	DurationMS  int64   `json:"duration_ms"`
}

// HierarchyLevel is one aggregation level of a hierarchical detection
type HierarchyLevel struct {
	Level       int   `json:"level"`
	Communities int   `json:"communities"`
	Membership  []int `json:"membership"`
}

// HierarchyResponse reports a completed hierarchical detection. Level 0 is
// the finest partition; membership at every level covers the base node set.
type HierarchyResponse struct {
	JobID       string           `json:"job_id"`
	Quality     float64          `json:"quality"`
	Communities int              `json:"communities"`
	Resolution  float64          `json:"resolution"`
	Membership  []int            `json:"membership"`
	Levels      []HierarchyLevel `json:"levels"`
	DurationMS  int64            `json:"duration_ms"`
}

// MultiplexResponse reports a completed multiplex detection. Quality is the
// weighted sum over layers; the membership is shared by all layers.
type MultiplexResponse struct {
	JobID       string  `json:"job_id"`
	Quality     float64 `json:"quality"`
	Communities int     `json:"communities"`
	Layers      int     `json:"layers"`
	Membership  []int   `json:"membership"`
	DurationMS  int64   `json:"duration_ms"`
}

// ProfileEntry is one distinct partition found by a resolution sweep
type ProfileEntry struct {
	Resolution  float64 `json:"resolution"`
	Quality     float64 `json:"quality"`
	Communities int     `json:"communities"`
	Membership  []int   `json:"membership"`
}

// ProfileResponse reports a completed resolution profile
type ProfileResponse struct {
	JobID      string         `json:"job_id"`
	Entries    []ProfileEntry `json:"entries"`
	DurationMS int64          `json:"duration_ms"`
}

// HealthResponse reports service liveness
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Store     string    `json:"store,omitempty"`
}
