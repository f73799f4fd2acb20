package partition

import (
	"fmt"

	"github.com/dd0wney/cluso-community/pkg/graph"
)

// VertexPartition is a mutable assignment of graph nodes to communities
// together with the quality function used to score it. Implementations keep
// per-community aggregates incrementally updated so that MoveNode and
// DiffMove are cheap. A partition is owned by exactly one caller at a time;
// it is never safe for concurrent mutation.
type VertexPartition interface {
	// Graph returns the graph this partition is defined over
	Graph() *graph.Graph
	// Membership returns the community id per node. The slice is owned by
	// the partition and must not be modified directly; use MoveNode.
	Membership() []int
	// CommunityOf returns the community id of node v
	CommunityOf(v int) int
	// NCommunities returns the number of non-empty communities
	NCommunities() int
	// CommunitySize returns the total node size of community c
	CommunitySize(c int) int
	// Communities returns the ids of all non-empty communities in
	// ascending order
	Communities() []int
	// MoveNode reassigns node v to community c, updating all aggregates
	MoveNode(v, c int)
	// EmptyCommunity returns the id of an empty community, allocating a new
	// id when every tracked community is occupied
	EmptyCommunity() int
	// DiffMove returns the change in quality if node v were moved to
	// community c, without performing the move
	DiffMove(v, c int) float64
	// Quality returns the quality of the current assignment. The value is
	// cached and recomputed only after a mutation.
	Quality() float64
	// RenumberCommunities compacts community ids to 0..k-1 in order of
	// first appearance, making memberships comparable across partitions
	RenumberCommunities()
	// SetMembership replaces the whole assignment and rebuilds aggregates
	SetMembership(membership []int) error
	// Clone returns an independent copy sharing the same graph
	Clone() VertexPartition
	// CreateOn builds a partition of the same kind over another graph
	CreateOn(g *graph.Graph, membership []int) (VertexPartition, error)
	// Name identifies the quality function (e.g. "cpm", "modularity")
	Name() string
}

// ResolutionPartition is a VertexPartition whose quality function is linear
// in a continuous resolution parameter. Only these can be swept by the
// resolution profiler.
type ResolutionPartition interface {
	VertexPartition
	// ResolutionParameter returns the resolution this partition was
	// constructed with
	ResolutionParameter() float64
	// QualityAt scores the current membership at a different resolution
	QualityAt(resolution float64) float64
	// BisectValue returns the monotone proxy used for profile bisection
	// (the total weight inside all communities)
	BisectValue() float64
}

// Constructor builds a fresh singleton partition over a graph at a given
// resolution. Quality functions without a resolution parameter ignore the
// argument; the profiler rejects those at run time.
type Constructor func(g *graph.Graph, resolution float64) VertexPartition

// core holds the bookkeeping shared by all quality functions
type core struct {
	g          *graph.Graph
	membership []int
	csize      []int     // total node size per community
	cstrength  []float64 // total weighted degree per community
	cinternal  []float64 // total internal edge weight per community, self-loops included
	nonEmpty   int

	qualityCached bool
	quality       float64
}

func newCore(g *graph.Graph) *core {
	c := &core{
		g:          g,
		membership: make([]int, g.N()),
	}
	for v := range c.membership {
		c.membership[v] = v
	}
	c.rebuild()
	return c
}

func newCoreFromMembership(g *graph.Graph, membership []int) (*core, error) {
	if len(membership) != g.N() {
		return nil, fmt.Errorf("membership length %d does not match node count %d", len(membership), g.N())
	}
	c := &core{
		g:          g,
		membership: make([]int, g.N()),
	}
	for v, comm := range membership {
		if comm < 0 {
			return nil, fmt.Errorf("node %d has negative community id %d", v, comm)
		}
		c.membership[v] = comm
	}
	c.rebuild()
	return c, nil
}

// rebuild recomputes every per-community aggregate from the membership
func (c *core) rebuild() {
	maxComm := 0
	for _, comm := range c.membership {
		if comm > maxComm {
			maxComm = comm
		}
	}
	c.csize = make([]int, maxComm+1)
	c.cstrength = make([]float64, maxComm+1)
	c.cinternal = make([]float64, maxComm+1)

	for v, comm := range c.membership {
		c.csize[comm] += c.g.Size(v)
		c.cstrength[comm] += c.g.Strength(v)
		c.cinternal[comm] += c.g.SelfLoop(v)
		for _, e := range c.g.Neighbors(v) {
			// Each internal edge appears in both adjacency lists; count once
			if e.To > v && c.membership[e.To] == comm {
				c.cinternal[comm] += e.Weight
			}
		}
	}
	c.nonEmpty = 0
	for _, s := range c.csize {
		if s > 0 {
			c.nonEmpty++
		}
	}
	c.qualityCached = false
}

func (c *core) Graph() *graph.Graph { return c.g }

func (c *core) Membership() []int { return c.membership }

func (c *core) CommunityOf(v int) int { return c.membership[v] }

func (c *core) NCommunities() int { return c.nonEmpty }

func (c *core) CommunitySize(comm int) int { return c.sizeOf(comm) }

func (c *core) Communities() []int {
	comms := make([]int, 0, c.nonEmpty)
	for comm, s := range c.csize {
		if s > 0 {
			comms = append(comms, comm)
		}
	}
	return comms
}

// sizeOf treats community ids beyond the tracked range as empty
func (c *core) sizeOf(comm int) int {
	if comm >= len(c.csize) {
		return 0
	}
	return c.csize[comm]
}

func (c *core) strengthOf(comm int) float64 {
	if comm >= len(c.cstrength) {
		return 0
	}
	return c.cstrength[comm]
}

// WeightToComm returns the total edge weight from node v to community comm,
// self-loops excluded
func (c *core) WeightToComm(v, comm int) float64 {
	w := 0.0
	for _, e := range c.g.Neighbors(v) {
		if c.membership[e.To] == comm {
			w += e.Weight
		}
	}
	return w
}

// MoveNode reassigns v to community comm and incrementally updates the
// per-community aggregates
func (c *core) MoveNode(v, comm int) {
	from := c.membership[v]
	if from == comm {
		return
	}
	c.grow(comm)

	kFrom := c.WeightToComm(v, from)
	kTo := c.WeightToComm(v, comm)
	loop := c.g.SelfLoop(v)

	c.cinternal[from] -= kFrom + loop
	c.cinternal[comm] += kTo + loop
	c.csize[from] -= c.g.Size(v)
	c.csize[comm] += c.g.Size(v)
	c.cstrength[from] -= c.g.Strength(v)
	c.cstrength[comm] += c.g.Strength(v)
	if c.csize[from] == 0 {
		c.nonEmpty--
	}
	if c.csize[comm] == c.g.Size(v) {
		c.nonEmpty++
	}
	c.membership[v] = comm
	c.qualityCached = false
}

// grow extends the aggregate arrays so community id comm is addressable
func (c *core) grow(comm int) {
	for len(c.csize) <= comm {
		c.csize = append(c.csize, 0)
		c.cstrength = append(c.cstrength, 0)
		c.cinternal = append(c.cinternal, 0)
	}
}

// EmptyCommunity returns an unoccupied community id, reusing a vacated slot
// when one exists
func (c *core) EmptyCommunity() int {
	for comm, s := range c.csize {
		if s == 0 {
			return comm
		}
	}
	return len(c.csize)
}

// RenumberCommunities compacts ids to 0..k-1 in order of first appearance
func (c *core) RenumberCommunities() {
	next := 0
	remap := make(map[int]int, c.nonEmpty)
	for v, comm := range c.membership {
		newID, ok := remap[comm]
		if !ok {
			newID = next
			remap[comm] = newID
			next++
		}
		c.membership[v] = newID
	}
	c.rebuild()
}

func (c *core) SetMembership(membership []int) error {
	if len(membership) != c.g.N() {
		return fmt.Errorf("membership length %d does not match node count %d", len(membership), c.g.N())
	}
	for v, comm := range membership {
		if comm < 0 {
			return fmt.Errorf("node %d has negative community id %d", v, comm)
		}
	}
	copy(c.membership, membership)
	c.rebuild()
	return nil
}

// totalInternal returns the summed internal weight across communities
func (c *core) totalInternal() float64 {
	total := 0.0
	for _, w := range c.cinternal {
		total += w
	}
	return total
}

func (c *core) cloneCore() *core {
	return &core{
		g:             c.g,
		membership:    append([]int(nil), c.membership...),
		csize:         append([]int(nil), c.csize...),
		cstrength:     append([]float64(nil), c.cstrength...),
		cinternal:     append([]float64(nil), c.cinternal...),
		nonEmpty:      c.nonEmpty,
		qualityCached: c.qualityCached,
		quality:       c.quality,
	}
}

// MembershipEqual reports whether two partitions induce the same grouping,
// comparing canonical renumberings so raw id differences do not matter
func MembershipEqual(a, b VertexPartition) bool {
	if a.Graph().N() != b.Graph().N() {
		return false
	}
	ca := append([]int(nil), a.Membership()...)
	cb := append([]int(nil), b.Membership()...)
	canonicalize(ca)
	canonicalize(cb)
	for i := range ca {
		if ca[i] != cb[i] {
			return false
		}
	}
	return true
}

// canonicalize renumbers a membership slice in place by first appearance
func canonicalize(m []int) {
	next := 0
	remap := make(map[int]int)
	for i, comm := range m {
		newID, ok := remap[comm]
		if !ok {
			newID = next
			remap[comm] = newID
			next++
		}
		m[i] = newID
	}
}
