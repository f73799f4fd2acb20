package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxNodes      = 5_000_000
	MaxEdges      = 50_000_000
	MaxLayers     = 32
	MaxIterations = 10_000
)

func init() {
	validate = validator.New()
}

// EdgeInput is one undirected edge of a request graph
type EdgeInput struct {
	Source int     `json:"source" validate:"min=0"`
	Target int     `json:"target" validate:"min=0"`
	Weight float64 `json:"weight" validate:"omitempty,gt=0"`
}

// DetectRequest asks for community detection on a single graph
type DetectRequest struct {
	Nodes         int         `json:"nodes" validate:"required,min=1"`
	Edges         []EdgeInput `json:"edges" validate:"dive"`
	Quality       string      `json:"quality" validate:"omitempty,oneof=cpm rb_configuration modularity significance"`
	Resolution    float64     `json:"resolution" validate:"omitempty,gt=0"`
	Iterations    int         `json:"iterations"`
	ConsiderComms string      `json:"consider_comms" validate:"omitempty,oneof=neighbor_communities all_communities random_neighbor_community random_community"`
	Hierarchy     bool        `json:"hierarchy"`
	Seed          int64       `json:"seed"`
}

// LayerInput is one weighted layer of a multiplex request
type LayerInput struct {
	Edges  []EdgeInput `json:"edges" validate:"dive"`
	Weight float64     `json:"weight" validate:"min=0"`
}

// MultiplexRequest asks for joint detection over several layers sharing
// one node set
type MultiplexRequest struct {
	Nodes      int          `json:"nodes" validate:"required,min=1"`
	Layers     []LayerInput `json:"layers" validate:"required,min=1,dive"`
	Quality    string       `json:"quality" validate:"omitempty,oneof=cpm rb_configuration modularity significance"`
	Resolution float64      `json:"resolution" validate:"omitempty,gt=0"`
	Iterations int          `json:"iterations"`
	Seed       int64        `json:"seed"`
}

// ProfileRequest asks for a resolution profile sweep
type ProfileRequest struct {
	Nodes             int         `json:"nodes" validate:"required,min=1"`
	Edges             []EdgeInput `json:"edges" validate:"dive"`
	Quality           string      `json:"quality" validate:"omitempty,oneof=cpm rb_configuration"`
	MinResolution     float64     `json:"min_resolution" validate:"gte=0"`
	MaxResolution     float64     `json:"max_resolution" validate:"gt=0"`
	MinDiffResolution float64     `json:"min_diff_resolution" validate:"omitempty,gt=0"`
	LinearBisection   bool        `json:"linear_bisection"`
	Iterations        int         `json:"iterations"`
	Seed              int64       `json:"seed"`
}

// ValidateDetectRequest validates a detection request
func ValidateDetectRequest(req *DetectRequest) error {
	if req == nil {
		return errors.New("detect request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if req.Nodes > MaxNodes {
		return fmt.Errorf("Nodes: maximum %d nodes allowed, got %d", MaxNodes, req.Nodes)
	}
	if len(req.Edges) > MaxEdges {
		return fmt.Errorf("Edges: maximum %d edges allowed, got %d", MaxEdges, len(req.Edges))
	}
	if err := validateIterations(req.Iterations); err != nil {
		return err
	}
	return validateEdgeBounds(req.Edges, req.Nodes)
}

// ValidateMultiplexRequest validates a multiplex detection request
func ValidateMultiplexRequest(req *MultiplexRequest) error {
	if req == nil {
		return errors.New("multiplex request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if req.Nodes > MaxNodes {
		return fmt.Errorf("Nodes: maximum %d nodes allowed, got %d", MaxNodes, req.Nodes)
	}
	if len(req.Layers) > MaxLayers {
		return fmt.Errorf("Layers: maximum %d layers allowed, got %d", MaxLayers, len(req.Layers))
	}
	if err := validateIterations(req.Iterations); err != nil {
		return err
	}
	for i, layer := range req.Layers {
		if len(layer.Edges) > MaxEdges {
			return fmt.Errorf("Layers: layer %d exceeds maximum of %d edges", i, MaxEdges)
		}
		if err := validateEdgeBounds(layer.Edges, req.Nodes); err != nil {
			return fmt.Errorf("Layers: layer %d: %w", i, err)
		}
	}
	return nil
}

// ValidateProfileRequest validates a resolution profile request
func ValidateProfileRequest(req *ProfileRequest) error {
	if req == nil {
		return errors.New("profile request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if req.Nodes > MaxNodes {
		return fmt.Errorf("Nodes: maximum %d nodes allowed, got %d", MaxNodes, req.Nodes)
	}
	if len(req.Edges) > MaxEdges {
		return fmt.Errorf("Edges: maximum %d edges allowed, got %d", MaxEdges, len(req.Edges))
	}
	if req.MinResolution >= req.MaxResolution {
		return fmt.Errorf("MinResolution: must be below MaxResolution (%g >= %g)",
			req.MinResolution, req.MaxResolution)
	}
	if err := validateIterations(req.Iterations); err != nil {
		return err
	}
	return validateEdgeBounds(req.Edges, req.Nodes)
}

// validateEdgeBounds checks that every edge endpoint is a valid node id
func validateEdgeBounds(edges []EdgeInput, nodes int) error {
	for i, e := range edges {
		if e.Source >= nodes || e.Target >= nodes {
			return fmt.Errorf("Edges: edge %d references node outside 0..%d", i, nodes-1)
		}
	}
	return nil
}

// validateIterations bounds the iteration budget; negative means until
// convergence and is always allowed
func validateIterations(n int) error {
	if n > MaxIterations {
		return fmt.Errorf("Iterations: must not exceed %d, got %d", MaxIterations, n)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of %s", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
