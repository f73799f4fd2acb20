package partition

import (
	"math"

	"github.com/dd0wney/cluso-community/pkg/graph"
)

// Significance scores how surprising the observed community densities are
// compared to a random graph of the same overall density: sum over
// communities of binom(n_c, 2) * KL(d_c || d), where d_c is the internal
// density of community c and d the density of the whole graph. It has no
// resolution parameter.
type Significance struct {
	*core
}

// NewSignificance creates a singleton significance partition
func NewSignificance(g *graph.Graph) *Significance {
	return &Significance{core: newCore(g)}
}

// NewSignificanceFromMembership creates a significance partition with a preset membership
func NewSignificanceFromMembership(g *graph.Graph, membership []int) (*Significance, error) {
	c, err := newCoreFromMembership(g, membership)
	if err != nil {
		return nil, err
	}
	return &Significance{core: c}, nil
}

// SignificanceConstructor adapts NewSignificance to the Constructor
// signature; the resolution argument is ignored and the profiler rejects
// this quality function up front.
func SignificanceConstructor(g *graph.Graph, _ float64) VertexPartition {
	return NewSignificance(g)
}

func (p *Significance) Name() string { return "significance" }

// graphDensity is the total weight divided by the number of node pairs
func (p *Significance) graphDensity() float64 {
	n := float64(p.g.TotalSize())
	pairs := n * (n - 1) / 2
	if pairs == 0 {
		return 0
	}
	return p.g.TotalWeight() / pairs
}

// contribution returns the significance term of a single community
func (p *Significance) contribution(size int, internal, density float64) float64 {
	n := float64(size)
	pairs := n * (n - 1) / 2
	if pairs == 0 {
		return 0
	}
	return pairs * klBinary(internal/pairs, density)
}

func (p *Significance) DiffMove(v, comm int) float64 {
	from := p.membership[v]
	if from == comm {
		return 0
	}
	d := p.graphDensity()
	kTo := p.WeightToComm(v, comm)
	kFrom := p.WeightToComm(v, from)
	loop := p.g.SelfLoop(v)
	sv := p.g.Size(v)

	before := p.contribution(p.csize[from], p.cinternal[from], d) +
		p.contribution(p.sizeOf(comm), p.internalOf(comm), d)
	after := p.contribution(p.csize[from]-sv, p.cinternal[from]-kFrom-loop, d) +
		p.contribution(p.sizeOf(comm)+sv, p.internalOf(comm)+kTo+loop, d)
	return after - before
}

func (p *Significance) internalOf(comm int) float64 {
	if comm >= len(p.cinternal) {
		return 0
	}
	return p.cinternal[comm]
}

func (p *Significance) Quality() float64 {
	if p.qualityCached {
		return p.quality
	}
	d := p.graphDensity()
	q := 0.0
	for comm := range p.cinternal {
		q += p.contribution(p.csize[comm], p.cinternal[comm], d)
	}
	p.quality = q
	p.qualityCached = true
	return q
}

func (p *Significance) Clone() VertexPartition {
	return &Significance{core: p.cloneCore()}
}

func (p *Significance) CreateOn(g *graph.Graph, membership []int) (VertexPartition, error) {
	return NewSignificanceFromMembership(g, membership)
}

// klBinary is the Kullback-Leibler divergence between two Bernoulli
// distributions with success probabilities q and prior
func klBinary(q, prior float64) float64 {
	if prior <= 0 || prior >= 1 {
		return 0
	}
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}
	kl := 0.0
	if q > 0 {
		kl += q * math.Log(q/prior)
	}
	if q < 1 {
		kl += (1 - q) * math.Log((1-q)/(1-prior))
	}
	return kl
}
