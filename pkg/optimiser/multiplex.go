package optimiser

import (
	"fmt"
	"math/rand"

	"github.com/dd0wney/cluso-community/pkg/localsearch"
	"github.com/dd0wney/cluso-community/pkg/logging"
	"github.com/dd0wney/cluso-community/pkg/partition"
)

// OptimiseMultiplex jointly optimises several partitions over the same node
// set, one per graph layer. A relocation is committed in every layer at once
// when the weighted sum of per-layer quality deltas is positive, so all
// partitions hold identical membership after the call. Layers are aligned to
// the first partition's membership before optimisation starts. Budget
// semantics match Optimise; the optional fixed mask pins nodes in place.
// Returns the cumulative combined weighted delta.
func (o *Optimiser) OptimiseMultiplex(parts []partition.VertexPartition, weights []float64, nIterations int, fixed []bool) (float64, error) {
	if len(parts) == 0 {
		return 0, fmt.Errorf("%w: at least one layer is required", ErrPrecondition)
	}
	if len(weights) != len(parts) {
		return 0, fmt.Errorf("%w: %d weights for %d layers", ErrPrecondition, len(weights), len(parts))
	}
	n := parts[0].Graph().N()
	for l, p := range parts {
		if p == nil {
			return 0, fmt.Errorf("%w: layer %d partition is nil", ErrPrecondition, l)
		}
		if p.Graph().N() != n {
			return 0, fmt.Errorf("%w: layer %d has %d nodes, layer 0 has %d",
				ErrPrecondition, l, p.Graph().N(), n)
		}
		if weights[l] < 0 {
			return 0, fmt.Errorf("%w: layer %d weight %g is negative", ErrPrecondition, l, weights[l])
		}
	}
	if fixed != nil && len(fixed) != n {
		return 0, fmt.Errorf("%w: fixed mask length %d does not match node count %d",
			ErrPrecondition, len(fixed), n)
	}

	// All layers must agree on membership before the joint sweep starts
	base := parts[0].Membership()
	for _, p := range parts[1:] {
		if err := p.SetMembership(base); err != nil {
			return 0, err
		}
	}

	rng := rand.New(rand.NewSource(o.cfg.Seed))
	total := 0.0
	iter := 0
	for nIterations < 0 || iter < nIterations {
		delta, err := o.multiplexPass(parts, weights, fixed, rng)
		if err != nil {
			return 0, err
		}
		total += delta
		iter++
		if nIterations < 0 && delta <= 0 {
			break
		}
	}

	for l, p := range parts {
		if p.NCommunities() > n {
			return 0, fmt.Errorf("%w: layer %d holds %d communities over %d nodes",
				ErrConsistency, l, p.NCommunities(), n)
		}
	}
	o.logger.Debug("multiplex optimise converged",
		logging.Int("layers", len(parts)),
		logging.Int("iterations", iter),
		logging.Int("communities", parts[0].NCommunities()),
		logging.Float64("delta", total))
	if o.metrics != nil {
		o.metrics.SetCommunities(parts[0].NCommunities())
	}
	return total, nil
}

// multiplexPass sweeps nodes in random order until a full sweep commits no
// relocation, returning the combined weighted delta of the pass
func (o *Optimiser) multiplexPass(parts []partition.VertexPartition, weights []float64, fixed []bool, rng *rand.Rand) (float64, error) {
	lead := parts[0]
	g := lead.Graph()
	n := g.N()
	merging := o.cfg.OptimiseRoutine == localsearch.RoutineMerge

	total := 0.0
	for improved := true; improved; {
		improved = false
		for _, v := range rng.Perm(n) {
			if fixed != nil && fixed[v] {
				continue
			}
			from := lead.CommunityOf(v)
			if merging && lead.CommunitySize(from) != g.Size(v) {
				continue
			}

			bestComm := from
			bestGain := 0.0
			for _, comm := range o.multiplexCandidates(parts, v, rng) {
				if comm == from {
					continue
				}
				if o.cfg.MaxCommunitySize > 0 &&
					lead.CommunitySize(comm)+g.Size(v) > o.cfg.MaxCommunitySize {
					continue
				}
				gain := 0.0
				for l, p := range parts {
					gain += weights[l] * p.DiffMove(v, comm)
				}
				if gain > bestGain {
					bestGain = gain
					bestComm = comm
				}
			}

			if bestComm != from {
				for _, p := range parts {
					p.MoveNode(v, bestComm)
				}
				total += bestGain
				improved = true
			}
		}
	}
	if total < -deltaTolerance {
		return 0, fmt.Errorf("%w: multiplex pass regressed combined quality by %g",
			ErrConsistency, -total)
	}
	return total, nil
}

// multiplexCandidates lists target communities for node v according to the
// configured consider mode, pooling neighbourhoods across every layer
func (o *Optimiser) multiplexCandidates(parts []partition.VertexPartition, v int, rng *rand.Rand) []int {
	lead := parts[0]
	var comms []int
	switch o.cfg.ConsiderComms {
	case localsearch.ConsiderAllComms:
		comms = lead.Communities()
	case localsearch.ConsiderRandComm:
		comms = []int{lead.CommunityOf(rng.Intn(lead.Graph().N()))}
	case localsearch.ConsiderRandNeighborComm:
		if comm, ok := randLayerNeighborComm(parts, v, rng); ok {
			comms = []int{comm}
		}
	default:
		seen := map[int]bool{}
		for _, p := range parts {
			for _, e := range p.Graph().Neighbors(v) {
				comm := p.CommunityOf(e.To)
				if !seen[comm] {
					seen[comm] = true
					comms = append(comms, comm)
				}
			}
		}
	}
	if o.cfg.ConsiderEmptyCommunity && lead.NCommunities() < lead.Graph().N() {
		comms = append(comms, lead.EmptyCommunity())
	}
	return comms
}

// randLayerNeighborComm draws one neighbouring community with probability
// proportional to the connecting edge weight, pooled over all layers
func randLayerNeighborComm(parts []partition.VertexPartition, v int, rng *rand.Rand) (int, bool) {
	totalWeight := 0.0
	for _, p := range parts {
		for _, e := range p.Graph().Neighbors(v) {
			totalWeight += e.Weight
		}
	}
	if totalWeight <= 0 {
		return 0, false
	}
	target := rng.Float64() * totalWeight
	for _, p := range parts {
		for _, e := range p.Graph().Neighbors(v) {
			target -= e.Weight
			if target <= 0 {
				return p.CommunityOf(e.To), true
			}
		}
	}
	last := parts[len(parts)-1]
	nbrs := last.Graph().Neighbors(v)
	return last.CommunityOf(nbrs[len(nbrs)-1].To), true
}
