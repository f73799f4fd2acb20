package localsearch

import (
	"fmt"

	"github.com/dd0wney/cluso-community/pkg/partition"
)

// RefineNodes subdivides each community of p into locally optimal subsets.
// The partition is reset to singletons and then optimised with the given
// routine, with every relocation constrained to stay inside the community
// the node started in. Returns the quality change measured from the
// singleton baseline.
func (e *Engine) RefineNodes(p partition.VertexPartition, routine Routine, mode ConsiderMode) (float64, error) {
	constrainer := p.Clone()
	singleton := make([]int, p.Graph().N())
	for v := range singleton {
		singleton[v] = v
	}
	if err := p.SetMembership(singleton); err != nil {
		return 0, fmt.Errorf("reset to singletons: %w", err)
	}
	return e.sweep(p, constrainer, nil, mode, routine)
}
