package localsearch

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/dd0wney/cluso-community/pkg/validation"
)

// ErrConsistency reports that a local-search pass left the partition with
// more communities than nodes. This indicates a broken move primitive and
// is always fatal for the surrounding orchestration call.
var ErrConsistency = errors.New("internal consistency violation: community count exceeds node count")

// ConsiderMode controls which candidate communities a node relocation
// evaluates during a sweep
type ConsiderMode int

const (
	// ConsiderNeighborComms evaluates the communities of the node's neighbors
	ConsiderNeighborComms ConsiderMode = iota
	// ConsiderAllComms evaluates every non-empty community
	ConsiderAllComms
	// ConsiderRandNeighborComm evaluates one neighbor community chosen with
	// probability proportional to the connecting edge weight
	ConsiderRandNeighborComm
	// ConsiderRandComm evaluates one community chosen with probability
	// proportional to its size
	ConsiderRandComm
)

func (m ConsiderMode) String() string {
	switch m {
	case ConsiderNeighborComms:
		return "neighbor_communities"
	case ConsiderAllComms:
		return "all_communities"
	case ConsiderRandNeighborComm:
		return "random_neighbor_community"
	case ConsiderRandComm:
		return "random_community"
	default:
		return fmt.Sprintf("consider_mode(%d)", int(m))
	}
}

// ParseConsiderMode converts a config string into a ConsiderMode
func ParseConsiderMode(s string) (ConsiderMode, error) {
	switch s {
	case "neighbor_communities":
		return ConsiderNeighborComms, nil
	case "all_communities":
		return ConsiderAllComms, nil
	case "random_neighbor_community":
		return ConsiderRandNeighborComm, nil
	case "random_community":
		return ConsiderRandComm, nil
	default:
		return 0, fmt.Errorf("unknown consider mode %q", s)
	}
}

// Routine selects the relocation primitive used by a sweep
type Routine int

const (
	// RoutineMove relocates any node to its best community
	RoutineMove Routine = iota
	// RoutineMerge relocates only nodes that are alone in their community,
	// so communities can grow but never shrink
	RoutineMerge
)

func (r Routine) String() string {
	switch r {
	case RoutineMove:
		return "move"
	case RoutineMerge:
		return "merge"
	default:
		return fmt.Sprintf("routine(%d)", int(r))
	}
}

// ParseRoutine converts a config string into a Routine
func ParseRoutine(s string) (Routine, error) {
	switch s {
	case "move":
		return RoutineMove, nil
	case "merge":
		return RoutineMerge, nil
	default:
		return 0, fmt.Errorf("unknown routine %q", s)
	}
}

// Config tunes the local-search engine
type Config struct {
	// ConsiderEmptyCommunity also evaluates moving a node into a fresh
	// empty community, allowing communities to split
	ConsiderEmptyCommunity bool
	// MaxCommunitySize caps the total node size a community may reach
	// through moves; 0 means unbounded
	MaxCommunitySize int
	// Seed initialises the node-visit shuffle RNG
	Seed int64
}

// Validate rejects malformed configuration before any optimisation work
func (c Config) Validate() error {
	return validation.NewConfigValidator("localsearch.Config").
		MinInt("max_community_size", c.MaxCommunitySize, 0).
		Error()
}

// Engine implements the local-search primitives: single-sweep node moves and
// merges, their constrained variants, partition refinement, and graph
// aggregation. Every operation mutates the partition argument in place and
// returns the change in quality. The engine assumes exclusive access to the
// partition for the duration of a call.
type Engine struct {
	cfg Config
	rng *rand.Rand
}

// New creates an engine with the given configuration
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Reseed resets the visit-order RNG, making a following run reproducible
func (e *Engine) Reseed(seed int64) {
	e.rng = rand.New(rand.NewSource(seed))
}
