package optimiser

import (
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-community/pkg/graph"
	"github.com/dd0wney/cluso-community/pkg/localsearch"
	"github.com/dd0wney/cluso-community/pkg/logging"
	"github.com/dd0wney/cluso-community/pkg/metrics"
	"github.com/dd0wney/cluso-community/pkg/partition"
	"github.com/dd0wney/cluso-community/pkg/validation"
)

// ErrPrecondition marks arguments rejected before any optimisation work
// begins: malformed intervals, bad budgets, quality functions that do not
// support the requested operation.
var ErrPrecondition = errors.New("precondition violation")

// ErrConsistency marks a broken local-search contract: more communities than
// nodes, or a pass that made quality worse. The whole orchestration call is
// aborted, never partially recovered.
var ErrConsistency = localsearch.ErrConsistency

// deltaTolerance absorbs floating-point noise when deciding whether a pass
// regressed quality. Anything below this magnitude is treated as zero.
const deltaTolerance = 1e-10

// Engine is the local-search capability the orchestrator consumes. Every
// operation blocks until fully complete, mutates the partition in place and
// returns the quality delta. Implementations must guarantee that a sweep
// never leaves the partition with more communities than nodes.
type Engine interface {
	MoveNodes(p partition.VertexPartition, fixed []bool, mode localsearch.ConsiderMode) (float64, error)
	MergeNodes(p partition.VertexPartition, fixed []bool, mode localsearch.ConsiderMode) (float64, error)
	MoveNodesConstrained(p, constrainer partition.VertexPartition, mode localsearch.ConsiderMode) (float64, error)
	MergeNodesConstrained(p, constrainer partition.VertexPartition, mode localsearch.ConsiderMode) (float64, error)
	RefineNodes(p partition.VertexPartition, routine localsearch.Routine, mode localsearch.ConsiderMode) (float64, error)
	Aggregate(p partition.VertexPartition) (partition.VertexPartition, []int, error)
	Reseed(seed int64)
}

// Config tunes the optimisation orchestrator
type Config struct {
	// ConsiderComms selects candidate communities during optimisation
	ConsiderComms localsearch.ConsiderMode `yaml:"consider_comms"`
	// RefineConsiderComms selects candidates during refinement
	RefineConsiderComms localsearch.ConsiderMode `yaml:"refine_consider_comms"`
	// OptimiseRoutine is the primitive driven to convergence (move or merge)
	OptimiseRoutine localsearch.Routine `yaml:"optimise_routine"`
	// RefineRoutine is the primitive used to subdivide communities
	RefineRoutine localsearch.Routine `yaml:"refine_routine"`
	// RefinePartition enables refinement before aggregation
	RefinePartition bool `yaml:"refine_partition"`
	// ConsiderEmptyCommunity also evaluates moves into a fresh community
	ConsiderEmptyCommunity bool `yaml:"consider_empty_community"`
	// MaxCommunitySize caps community size during moves; 0 = unbounded
	MaxCommunitySize int `yaml:"max_community_size"`
	// Seed makes node-visit order reproducible
	Seed int64 `yaml:"seed"`
}

// DefaultConfig matches the Leiden algorithm defaults: greedy moves over
// neighbouring communities, merge-based refinement before aggregation.
func DefaultConfig() Config {
	return Config{
		ConsiderComms:          localsearch.ConsiderNeighborComms,
		RefineConsiderComms:    localsearch.ConsiderNeighborComms,
		OptimiseRoutine:        localsearch.RoutineMove,
		RefineRoutine:          localsearch.RoutineMerge,
		RefinePartition:        true,
		ConsiderEmptyCommunity: true,
		MaxCommunitySize:       0,
	}
}

// Validate rejects malformed configuration
func (c Config) Validate() error {
	return validation.NewConfigValidator("optimiser.Config").
		MinInt("max_community_size", c.MaxCommunitySize, 0).
		RangeInt("consider_comms", int(c.ConsiderComms), 0, 3).
		RangeInt("refine_consider_comms", int(c.RefineConsiderComms), 0, 3).
		RangeInt("optimise_routine", int(c.OptimiseRoutine), 0, 1).
		RangeInt("refine_routine", int(c.RefineRoutine), 0, 1).
		Error()
}

// Optimiser sequences local-search passes, aggregation rounds, multiplex
// layers and resolution sweeps. It is single-threaded: one call runs to
// completion before the next may begin, and every partition it touches is
// owned exclusively for the duration of the call.
type Optimiser struct {
	cfg     Config
	engine  Engine
	logger  logging.Logger
	metrics *metrics.Registry
}

// New creates an optimiser backed by the default local-search engine
func New(cfg Config) (*Optimiser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrecondition, err)
	}
	engine, err := localsearch.New(localsearch.Config{
		ConsiderEmptyCommunity: cfg.ConsiderEmptyCommunity,
		MaxCommunitySize:       cfg.MaxCommunitySize,
		Seed:                   cfg.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrecondition, err)
	}
	return NewWithEngine(cfg, engine)
}

// NewWithEngine creates an optimiser driving a caller-supplied engine
func NewWithEngine(cfg Config, engine Engine) (*Optimiser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrecondition, err)
	}
	if engine == nil {
		return nil, fmt.Errorf("%w: engine is nil", ErrPrecondition)
	}
	return &Optimiser{
		cfg:    cfg,
		engine: engine,
		logger: logging.DefaultLogger(),
	}, nil
}

// SetLogger replaces the structured logger
func (o *Optimiser) SetLogger(l logging.Logger) {
	if l != nil {
		o.logger = l
	}
}

// SetMetrics attaches a metrics registry; nil disables instrumentation
func (o *Optimiser) SetMetrics(r *metrics.Registry) {
	o.metrics = r
}

// Config returns a copy of the active configuration
func (o *Optimiser) Config() Config {
	return o.cfg
}

// Optimise drives the partition to a local optimum. With nIterations >= 0 it
// runs exactly that many passes and sums their deltas; with a negative
// budget it repeats until a pass yields no improvement. A pass is one full
// round of the configured routine plus aggregation cascade. The optional
// fixed mask forbids reassigning flagged nodes. The partition is mutated in
// place; the cumulative quality delta is returned.
func (o *Optimiser) Optimise(p partition.VertexPartition, nIterations int, fixed []bool) (float64, error) {
	if p == nil {
		return 0, fmt.Errorf("%w: partition is nil", ErrPrecondition)
	}
	if fixed != nil && len(fixed) != p.Graph().N() {
		return 0, fmt.Errorf("%w: fixed mask length %d does not match node count %d",
			ErrPrecondition, len(fixed), p.Graph().N())
	}

	total := 0.0
	iter := 0
	for nIterations < 0 || iter < nIterations {
		delta, err := o.pass(p, fixed)
		if err != nil {
			return 0, err
		}
		total += delta
		iter++
		if nIterations < 0 && delta <= 0 {
			break
		}
	}
	o.logger.Debug("optimise converged",
		logging.Int("iterations", iter),
		logging.Int("communities", p.NCommunities()),
		logging.Float64("delta", total))
	return total, nil
}

// pass runs the configured routine on the partition, then repeatedly
// aggregates and re-optimises the coarsened graph while improvement
// continues, finally writing the composed membership back onto the original
// node set. Returns the quality change of the whole cascade.
func (o *Optimiser) pass(p partition.VertexPartition, fixed []bool) (float64, error) {
	start := time.Now()
	before := p.Quality()

	work := p
	workFixed := fixed
	// membership composition chain: original node -> aggregate node per level
	maps := make([][]int, 0, 4)

	for {
		delta, err := o.routinePass(work, workFixed)
		if err != nil {
			return 0, err
		}
		if delta < -deltaTolerance {
			return 0, fmt.Errorf("%w: %s pass regressed quality by %g",
				ErrConsistency, o.cfg.OptimiseRoutine, -delta)
		}
		if delta <= deltaTolerance {
			break
		}
		if work.NCommunities() >= work.Graph().N() {
			// Aggregation would not shrink the graph; stop instead of stalling
			break
		}
		aggregated, m, err := o.aggregateStep(work)
		if err != nil {
			return 0, err
		}
		maps = append(maps, m)
		workFixed = liftFixed(workFixed, m, aggregated.Graph().N())
		work = aggregated
	}

	if len(maps) > 0 {
		if err := p.SetMembership(composeMembership(p.Graph().N(), maps, work)); err != nil {
			return 0, err
		}
	}
	delta := p.Quality() - before
	if o.metrics != nil {
		o.metrics.RecordOptimisationPass(o.cfg.OptimiseRoutine.String(), time.Since(start))
		o.metrics.SetCommunities(p.NCommunities())
	}
	return delta, nil
}

// routinePass runs one move or merge sweep to local convergence
func (o *Optimiser) routinePass(p partition.VertexPartition, fixed []bool) (float64, error) {
	switch o.cfg.OptimiseRoutine {
	case localsearch.RoutineMerge:
		return o.engine.MergeNodes(p, fixed, o.cfg.ConsiderComms)
	default:
		return o.engine.MoveNodes(p, fixed, o.cfg.ConsiderComms)
	}
}

// aggregateStep collapses the partition for the next cascade level. With
// refinement enabled the graph is aggregated by the refined subcommunities
// while the induced partition keeps the unrefined community assignment, so
// subsets can still move between communities at the coarser level.
func (o *Optimiser) aggregateStep(work partition.VertexPartition) (partition.VertexPartition, []int, error) {
	if !o.cfg.RefinePartition {
		aggregated, m, err := o.engine.Aggregate(work)
		if err != nil {
			return nil, nil, err
		}
		return aggregated, m, nil
	}

	refined := work.Clone()
	if _, err := o.engine.RefineNodes(refined, o.cfg.RefineRoutine, o.cfg.RefineConsiderComms); err != nil {
		return nil, nil, err
	}
	aggregated, m, err := o.engine.Aggregate(refined)
	if err != nil {
		return nil, nil, err
	}
	induced := make([]int, aggregated.Graph().N())
	for v, aggNode := range m {
		induced[aggNode] = work.CommunityOf(v)
	}
	if err := aggregated.SetMembership(induced); err != nil {
		return nil, nil, err
	}
	return aggregated, m, nil
}

// composeMembership maps every original node through the aggregation chain
// and reads its community off the top-level partition
func composeMembership(n int, maps [][]int, top partition.VertexPartition) []int {
	membership := make([]int, n)
	for v := 0; v < n; v++ {
		node := v
		for _, m := range maps {
			node = m[node]
		}
		membership[v] = top.CommunityOf(node)
	}
	return membership
}

// liftFixed marks an aggregate node fixed when any of its members is fixed
func liftFixed(fixed []bool, m []int, nAgg int) []bool {
	if fixed == nil {
		return nil
	}
	lifted := make([]bool, nAgg)
	for v, aggNode := range m {
		if fixed[v] {
			lifted[aggNode] = true
		}
	}
	return lifted
}

// FindPartition constructs a partition over the graph at the given
// resolution and optimises it with refinement forced off. It reports whether
// the result is stable, i.e. one further pass yields no improvement.
func (o *Optimiser) FindPartition(g *graph.Graph, construct partition.Constructor, resolution float64, nIterations int) (partition.VertexPartition, bool, error) {
	if g == nil || construct == nil {
		return nil, false, fmt.Errorf("%w: graph and constructor are required", ErrPrecondition)
	}
	flat := *o
	flat.cfg.RefinePartition = false

	p := construct(g, resolution)
	if _, err := flat.Optimise(p, nIterations, nil); err != nil {
		return nil, false, err
	}
	extra, err := flat.Optimise(p, 1, nil)
	if err != nil {
		return nil, false, err
	}
	return p, extra == 0, nil
}
