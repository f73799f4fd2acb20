package localsearch

import (
	"fmt"

	"github.com/dd0wney/cluso-community/pkg/partition"
)

// MoveNodes greedily relocates nodes to their best community until a full
// sweep makes no move. Nodes flagged in fixed never change community.
// Returns the change in quality.
func (e *Engine) MoveNodes(p partition.VertexPartition, fixed []bool, mode ConsiderMode) (float64, error) {
	return e.sweep(p, nil, fixed, mode, RoutineMove)
}

// MergeNodes is MoveNodes restricted to nodes that are alone in their
// community, so existing communities only grow
func (e *Engine) MergeNodes(p partition.VertexPartition, fixed []bool, mode ConsiderMode) (float64, error) {
	return e.sweep(p, nil, fixed, mode, RoutineMerge)
}

// MoveNodesConstrained is MoveNodes with candidate communities restricted to
// nodes sharing the constrainer's group, used for partition refinement
func (e *Engine) MoveNodesConstrained(p, constrainer partition.VertexPartition, mode ConsiderMode) (float64, error) {
	return e.sweep(p, constrainer, nil, mode, RoutineMove)
}

// MergeNodesConstrained is MergeNodes restricted to the constrainer's groups
func (e *Engine) MergeNodesConstrained(p, constrainer partition.VertexPartition, mode ConsiderMode) (float64, error) {
	return e.sweep(p, constrainer, nil, mode, RoutineMerge)
}

// sweep repeatedly visits all nodes in random order and applies the best
// positive-gain relocation per node until a full pass changes nothing
func (e *Engine) sweep(p, constrainer partition.VertexPartition, fixed []bool, mode ConsiderMode, routine Routine) (float64, error) {
	g := p.Graph()
	if fixed != nil && len(fixed) != g.N() {
		return 0, fmt.Errorf("fixed mask length %d does not match node count %d", len(fixed), g.N())
	}
	if constrainer != nil && constrainer.Graph().N() != g.N() {
		return 0, fmt.Errorf("constraining partition covers %d nodes, graph has %d", constrainer.Graph().N(), g.N())
	}

	before := p.Quality()
	improvement := true
	for improvement {
		improvement = false
		for _, v := range e.rng.Perm(g.N()) {
			if fixed != nil && fixed[v] {
				continue
			}
			if routine == RoutineMerge && p.CommunitySize(p.CommunityOf(v)) != g.Size(v) {
				// Node already shares a community; merges never undo that
				continue
			}
			if e.relocate(p, constrainer, v, mode) {
				improvement = true
			}
		}
	}
	if p.NCommunities() > g.N() {
		return 0, fmt.Errorf("%w: %d communities over %d nodes after %s sweep",
			ErrConsistency, p.NCommunities(), g.N(), routine)
	}
	return p.Quality() - before, nil
}

// relocate evaluates candidate communities for node v and commits the best
// strictly positive-gain move. Reports whether v moved.
func (e *Engine) relocate(p, constrainer partition.VertexPartition, v int, mode ConsiderMode) bool {
	g := p.Graph()
	from := p.CommunityOf(v)
	best := from
	bestGain := 0.0

	for _, comm := range e.candidates(p, constrainer, v, mode) {
		if comm == from || !e.fits(p, v, comm) {
			continue
		}
		if gain := p.DiffMove(v, comm); gain > bestGain {
			best = comm
			bestGain = gain
		}
	}

	// An empty community is a candidate only while there are fewer
	// communities than nodes, which keeps the community count bounded
	if e.cfg.ConsiderEmptyCommunity && p.NCommunities() < g.N() {
		empty := p.EmptyCommunity()
		if gain := p.DiffMove(v, empty); gain > bestGain {
			best = empty
			bestGain = gain
		}
	}

	if best == from {
		return false
	}
	p.MoveNode(v, best)
	return true
}

// fits applies the max-community-size cap to a candidate relocation
func (e *Engine) fits(p partition.VertexPartition, v, comm int) bool {
	if e.cfg.MaxCommunitySize <= 0 {
		return true
	}
	return p.CommunitySize(comm)+p.Graph().Size(v) <= e.cfg.MaxCommunitySize
}

// candidates returns the communities the consider mode selects for node v,
// deduplicated in visit order so runs are reproducible under a fixed seed
func (e *Engine) candidates(p, constrainer partition.VertexPartition, v int, mode ConsiderMode) []int {
	switch mode {
	case ConsiderNeighborComms:
		return e.neighborComms(p, constrainer, v)
	case ConsiderAllComms:
		if constrainer != nil {
			return e.groupComms(p, constrainer, v)
		}
		return p.Communities()
	case ConsiderRandNeighborComm:
		if comm, ok := e.randNeighborComm(p, constrainer, v); ok {
			return []int{comm}
		}
		return nil
	case ConsiderRandComm:
		if comm, ok := e.randComm(p); ok {
			return []int{comm}
		}
		return nil
	default:
		return nil
	}
}

// allowed reports whether a neighbor u may attract node v under the
// constraining partition
func allowed(constrainer partition.VertexPartition, v, u int) bool {
	return constrainer == nil || constrainer.CommunityOf(u) == constrainer.CommunityOf(v)
}

func (e *Engine) neighborComms(p, constrainer partition.VertexPartition, v int) []int {
	seen := make(map[int]bool)
	comms := make([]int, 0, 8)
	for _, edge := range p.Graph().Neighbors(v) {
		if !allowed(constrainer, v, edge.To) {
			continue
		}
		comm := p.CommunityOf(edge.To)
		if !seen[comm] {
			seen[comm] = true
			comms = append(comms, comm)
		}
	}
	return comms
}

// groupComms returns the communities represented inside v's constrainer group
func (e *Engine) groupComms(p, constrainer partition.VertexPartition, v int) []int {
	group := constrainer.CommunityOf(v)
	seen := make(map[int]bool)
	comms := make([]int, 0, 8)
	for u := 0; u < p.Graph().N(); u++ {
		if constrainer.CommunityOf(u) != group {
			continue
		}
		comm := p.CommunityOf(u)
		if !seen[comm] {
			seen[comm] = true
			comms = append(comms, comm)
		}
	}
	return comms
}

// randNeighborComm picks one neighbor community with probability
// proportional to the connecting edge weight
func (e *Engine) randNeighborComm(p, constrainer partition.VertexPartition, v int) (int, bool) {
	total := 0.0
	for _, edge := range p.Graph().Neighbors(v) {
		if allowed(constrainer, v, edge.To) {
			total += edge.Weight
		}
	}
	if total <= 0 {
		return 0, false
	}
	r := e.rng.Float64() * total
	for _, edge := range p.Graph().Neighbors(v) {
		if !allowed(constrainer, v, edge.To) {
			continue
		}
		r -= edge.Weight
		if r <= 0 {
			return p.CommunityOf(edge.To), true
		}
	}
	return 0, false
}

// randComm picks one non-empty community with probability proportional to
// its total node size
func (e *Engine) randComm(p partition.VertexPartition) (int, bool) {
	comms := p.Communities()
	if len(comms) == 0 {
		return 0, false
	}
	total := 0
	for _, comm := range comms {
		total += p.CommunitySize(comm)
	}
	r := e.rng.Intn(total)
	for _, comm := range comms {
		r -= p.CommunitySize(comm)
		if r < 0 {
			return comm, true
		}
	}
	return comms[len(comms)-1], true
}
