package optimiser

import (
	"fmt"

	"github.com/dd0wney/cluso-community/pkg/logging"
	"github.com/dd0wney/cluso-community/pkg/partition"
)

// OptimiseHierarchical optimises the partition and captures one snapshot per
// aggregation level, producing a strictly coarsening hierarchy. Every
// snapshot is defined over the original node set; levels are ordered finest
// to coarsest, community counts never increase and memberships nest: nodes
// sharing a community at one level share one at every coarser level. The
// last snapshot is the final partition, which is also written back into p.
//
// With nIterations < 0 rounds continue until a round neither improves
// quality nor changes the community count; otherwise nIterations caps the
// number of rounds (at least one round always runs).
func (o *Optimiser) OptimiseHierarchical(p partition.VertexPartition, nIterations int) (partition.VertexPartition, []partition.VertexPartition, error) {
	if p == nil {
		return nil, nil, fmt.Errorf("%w: partition is nil", ErrPrecondition)
	}
	origGraph := p.Graph()

	work := p.Clone()
	// Aggregation in the hierarchy always groups by whole communities, one
	// aggregate node per community, so that a community can never be split
	// at a coarser level. Refinement would aggregate by subcommunities and
	// break the nesting guarantee, so it only applies to flat optimisation.
	maps := make([][]int, 0, 4)
	hierarchy := make([]partition.VertexPartition, 0, 4)

	prevComms := -1
	round := 0
	for {
		delta, err := o.routinePass(work, nil)
		if err != nil {
			return nil, nil, err
		}
		if delta < -deltaTolerance {
			return nil, nil, fmt.Errorf("%w: %s pass regressed quality by %g",
				ErrConsistency, o.cfg.OptimiseRoutine, -delta)
		}
		nComms := work.NCommunities()
		if nComms > work.Graph().N() {
			return nil, nil, fmt.Errorf("%w: %d communities over %d nodes at hierarchy level %d",
				ErrConsistency, nComms, work.Graph().N(), len(hierarchy))
		}

		// A round that finds nothing and leaves the community count where it
		// was has converged; appending it would duplicate the last level.
		if len(hierarchy) > 0 && delta <= deltaTolerance && nComms == prevComms {
			break
		}

		work.RenumberCommunities()
		snapshot, err := p.CreateOn(origGraph, composeMembership(origGraph.N(), maps, work))
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot hierarchy level %d: %w", len(hierarchy), err)
		}
		hierarchy = append(hierarchy, snapshot)
		round++

		if nIterations >= 0 && round >= max(nIterations, 1) {
			break
		}
		if nComms >= work.Graph().N() && delta <= deltaTolerance {
			// Every node is already alone and nothing improved; aggregating
			// would produce a graph no smaller than this one
			break
		}

		aggregated, m, err := o.engine.Aggregate(work)
		if err != nil {
			return nil, nil, err
		}
		maps = append(maps, m)
		prevComms = nComms
		work = aggregated
	}

	final := hierarchy[len(hierarchy)-1]
	if err := p.SetMembership(final.Membership()); err != nil {
		return nil, nil, err
	}
	o.logger.Info("hierarchical optimisation finished",
		logging.Int("levels", len(hierarchy)),
		logging.Int("communities", final.NCommunities()))
	if o.metrics != nil {
		o.metrics.SetHierarchyDepth(len(hierarchy))
		o.metrics.SetCommunities(final.NCommunities())
	}
	return final, hierarchy, nil
}
