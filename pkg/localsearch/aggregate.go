package localsearch

import (
	"fmt"

	"github.com/dd0wney/cluso-community/pkg/graph"
	"github.com/dd0wney/cluso-community/pkg/partition"
)

// Aggregate collapses each community of p into a single node of a smaller
// graph, preserving inter-community edge weights as edges and internal
// weights as self-loops. The partition is renumbered first so community ids
// match aggregate node ids. Returns the induced partition over the aggregate
// graph (every aggregate node in its own community) and the mapping from
// node to aggregate node.
func (e *Engine) Aggregate(p partition.VertexPartition) (partition.VertexPartition, []int, error) {
	g := p.Graph()
	p.RenumberCommunities()
	nComms := p.NCommunities()
	if nComms > g.N() {
		return nil, nil, fmt.Errorf("%w: %d communities over %d nodes before aggregation",
			ErrConsistency, nComms, g.N())
	}

	commMap := append([]int(nil), p.Membership()...)
	aggGraph := graph.Aggregate(g, commMap, nComms)

	singleton := make([]int, nComms)
	for v := range singleton {
		singleton[v] = v
	}
	aggPartition, err := p.CreateOn(aggGraph, singleton)
	if err != nil {
		return nil, nil, fmt.Errorf("create aggregate partition: %w", err)
	}
	return aggPartition, commMap, nil
}
