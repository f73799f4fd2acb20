package partition

import "github.com/dd0wney/cluso-community/pkg/graph"

// CPM scores a partition with the constant Potts model:
// sum over communities of w_c - resolution * n_c*(n_c-1)/2, where w_c is the
// internal weight and n_c the total node size of community c. The resolution
// parameter sets the internal density below which a community is not worth
// keeping together.
type CPM struct {
	*core
	resolution float64
}

// NewCPM creates a singleton CPM partition at the given resolution
func NewCPM(g *graph.Graph, resolution float64) *CPM {
	return &CPM{core: newCore(g), resolution: resolution}
}

// NewCPMFromMembership creates a CPM partition with a preset membership
func NewCPMFromMembership(g *graph.Graph, membership []int, resolution float64) (*CPM, error) {
	c, err := newCoreFromMembership(g, membership)
	if err != nil {
		return nil, err
	}
	return &CPM{core: c, resolution: resolution}, nil
}

// CPMConstructor adapts NewCPM to the Constructor signature
func CPMConstructor(g *graph.Graph, resolution float64) VertexPartition {
	return NewCPM(g, resolution)
}

func (p *CPM) Name() string { return "cpm" }

func (p *CPM) ResolutionParameter() float64 { return p.resolution }

func (p *CPM) DiffMove(v, comm int) float64 {
	from := p.membership[v]
	if from == comm {
		return 0
	}
	kTo := p.WeightToComm(v, comm)
	kFrom := p.WeightToComm(v, from)
	sv := float64(p.g.Size(v))
	nTo := float64(p.sizeOf(comm))
	nFrom := float64(p.csize[from])
	return (kTo - kFrom) - p.resolution*sv*(nTo-nFrom+sv)
}

func (p *CPM) Quality() float64 {
	if !p.qualityCached {
		p.quality = p.QualityAt(p.resolution)
		p.qualityCached = true
	}
	return p.quality
}

func (p *CPM) QualityAt(resolution float64) float64 {
	q := 0.0
	for comm, w := range p.cinternal {
		n := float64(p.csize[comm])
		q += w - resolution*n*(n-1)/2
	}
	return q
}

// BisectValue is the total internal weight, which grows monotonically as the
// resolution parameter decreases
func (p *CPM) BisectValue() float64 { return p.totalInternal() }

func (p *CPM) Clone() VertexPartition {
	return &CPM{core: p.cloneCore(), resolution: p.resolution}
}

func (p *CPM) CreateOn(g *graph.Graph, membership []int) (VertexPartition, error) {
	return NewCPMFromMembership(g, membership, p.resolution)
}
