package partition

import "github.com/dd0wney/cluso-community/pkg/graph"

// RBConfiguration scores a partition with the Reichardt-Bornholdt quality
// function using the configuration null model: sum over communities of
// w_c - resolution * K_c^2 / (4m), where K_c is the total strength of the
// community and m the total edge weight. At resolution 1 this is
// unnormalised modularity.
type RBConfiguration struct {
	*core
	resolution float64
}

// NewRBConfiguration creates a singleton RB partition at the given resolution
func NewRBConfiguration(g *graph.Graph, resolution float64) *RBConfiguration {
	return &RBConfiguration{core: newCore(g), resolution: resolution}
}

// NewRBConfigurationFromMembership creates an RB partition with a preset membership
func NewRBConfigurationFromMembership(g *graph.Graph, membership []int, resolution float64) (*RBConfiguration, error) {
	c, err := newCoreFromMembership(g, membership)
	if err != nil {
		return nil, err
	}
	return &RBConfiguration{core: c, resolution: resolution}, nil
}

// RBConfigurationConstructor adapts NewRBConfiguration to the Constructor signature
func RBConfigurationConstructor(g *graph.Graph, resolution float64) VertexPartition {
	return NewRBConfiguration(g, resolution)
}

func (p *RBConfiguration) Name() string { return "rb_configuration" }

func (p *RBConfiguration) ResolutionParameter() float64 { return p.resolution }

func (p *RBConfiguration) DiffMove(v, comm int) float64 {
	from := p.membership[v]
	if from == comm {
		return 0
	}
	m := p.g.TotalWeight()
	if m == 0 {
		return 0
	}
	kTo := p.WeightToComm(v, comm)
	kFrom := p.WeightToComm(v, from)
	kv := p.g.Strength(v)
	sTo := p.strengthOf(comm)
	sFrom := p.cstrength[from]
	return (kTo - kFrom) - p.resolution*kv*(sTo-sFrom+kv)/(2*m)
}

func (p *RBConfiguration) Quality() float64 {
	if !p.qualityCached {
		p.quality = p.QualityAt(p.resolution)
		p.qualityCached = true
	}
	return p.quality
}

func (p *RBConfiguration) QualityAt(resolution float64) float64 {
	m := p.g.TotalWeight()
	if m == 0 {
		return 0
	}
	q := 0.0
	for comm, w := range p.cinternal {
		s := p.cstrength[comm]
		q += w - resolution*s*s/(4*m)
	}
	return q
}

// BisectValue is the total internal weight across communities
func (p *RBConfiguration) BisectValue() float64 { return p.totalInternal() }

func (p *RBConfiguration) Clone() VertexPartition {
	return &RBConfiguration{core: p.cloneCore(), resolution: p.resolution}
}

func (p *RBConfiguration) CreateOn(g *graph.Graph, membership []int) (VertexPartition, error) {
	return NewRBConfigurationFromMembership(g, membership, p.resolution)
}
