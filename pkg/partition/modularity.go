package partition

import "github.com/dd0wney/cluso-community/pkg/graph"

// Modularity scores a partition with Newman-Girvan modularity:
// sum over communities of w_c/m - (K_c/(2m))^2. It carries no resolution
// parameter, so it cannot be swept by the resolution profiler.
type Modularity struct {
	*core
}

// NewModularity creates a singleton modularity partition
func NewModularity(g *graph.Graph) *Modularity {
	return &Modularity{core: newCore(g)}
}

// NewModularityFromMembership creates a modularity partition with a preset membership
func NewModularityFromMembership(g *graph.Graph, membership []int) (*Modularity, error) {
	c, err := newCoreFromMembership(g, membership)
	if err != nil {
		return nil, err
	}
	return &Modularity{core: c}, nil
}

// ModularityConstructor adapts NewModularity to the Constructor signature.
// The resolution argument is ignored; the profiler detects the missing
// resolution parameter and rejects this quality function up front.
func ModularityConstructor(g *graph.Graph, _ float64) VertexPartition {
	return NewModularity(g)
}

func (p *Modularity) Name() string { return "modularity" }

func (p *Modularity) DiffMove(v, comm int) float64 {
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
	return (kTo-kFrom)/m - kv*(sTo-sFrom+kv)/(2*m*m)
}

func (p *Modularity) Quality() float64 {
	if p.qualityCached {
		return p.quality
	}
	m := p.g.TotalWeight()
	q := 0.0
	if m > 0 {
		for comm, w := range p.cinternal {
			s := p.cstrength[comm]
			q += w/m - (s/(2*m))*(s/(2*m))
		}
	}
	p.quality = q
	p.qualityCached = true
	return q
}

func (p *Modularity) Clone() VertexPartition {
	return &Modularity{core: p.cloneCore()}
}

func (p *Modularity) CreateOn(g *graph.Graph, membership []int) (VertexPartition, error) {
	return NewModularityFromMembership(g, membership)
}
