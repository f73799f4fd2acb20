package partition

import (
	"math"
	"math/rand"
	"testing"

	"github.com/dd0wney/cluso-community/pkg/graph"
)

func triangle(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New(3)
	g.AddEdge(0, 1, 1)
	g.AddEdge(1, 2, 1)
	g.AddEdge(0, 2, 1)
	return g
}

func TestCPMQualityKnownValues(t *testing.T) {
	g := triangle(t)

	// All singletons: no internal weight, no size penalty
	p := NewCPM(g, 0.5)
	if q := p.Quality(); q != 0 {
		t.Errorf("singleton quality = %v, want 0", q)
	}

	// One community: 3 internal - 0.5 * 3 pairs = 1.5
	merged, err := NewCPMFromMembership(g, []int{0, 0, 0}, 0.5)
	if err != nil {
		t.Fatalf("NewCPMFromMembership() failed: %v", err)
	}
	if q := merged.Quality(); math.Abs(q-1.5) > 1e-12 {
		t.Errorf("merged quality = %v, want 1.5", q)
	}
	if b := merged.BisectValue(); math.Abs(b-3) > 1e-12 {
		t.Errorf("BisectValue() = %v, want 3", b)
	}
}

func TestCPMQualityAt(t *testing.T) {
	g := triangle(t)
	p, err := NewCPMFromMembership(g, []int{0, 0, 0}, 0.5)
	if err != nil {
		t.Fatalf("NewCPMFromMembership() failed: %v", err)
	}

	for _, res := range []float64{0.1, 1.0, 2.0} {
		fresh, err := NewCPMFromMembership(g, []int{0, 0, 0}, res)
		if err != nil {
			t.Fatalf("NewCPMFromMembership() failed: %v", err)
		}
		if got, want := p.QualityAt(res), fresh.Quality(); math.Abs(got-want) > 1e-12 {
			t.Errorf("QualityAt(%v) = %v, want %v", res, got, want)
		}
	}
}

func TestModularityKnownValues(t *testing.T) {
	// Two disconnected edges in two communities: Q = 2*(1/2 - 1/4) = 0.5
	g := graph.New(4)
	g.AddEdge(0, 1, 1)
	g.AddEdge(2, 3, 1)
	p, err := NewModularityFromMembership(g, []int{0, 0, 1, 1})
	if err != nil {
		t.Fatalf("NewModularityFromMembership() failed: %v", err)
	}
	if q := p.Quality(); math.Abs(q-0.5) > 1e-12 {
		t.Errorf("modularity = %v, want 0.5", q)
	}
}

func TestModularityZeroWeightGraph(t *testing.T) {
	p := NewModularity(graph.New(3))
	if q := p.Quality(); q != 0 {
		t.Errorf("quality on edgeless graph = %v, want 0", q)
	}
	if d := p.DiffMove(0, 1); d != 0 {
		t.Errorf("DiffMove on edgeless graph = %v, want 0", d)
	}
}

// DiffMove must predict exactly the quality change MoveNode produces,
// whichever quality function is in play.
func TestDiffMoveMatchesQualityDelta(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	g := graph.PlantedPartition(3, 6, 0.8, 0.2, rng)

	partitions := map[string]VertexPartition{
		"cpm":              NewCPM(g, 0.3),
		"rb_configuration": NewRBConfiguration(g, 0.7),
		"modularity":       NewModularity(g),
		"significance":     NewSignificance(g),
	}

	for name, p := range partitions {
		t.Run(name, func(t *testing.T) {
			moveRng := rand.New(rand.NewSource(7))
			for i := 0; i < 200; i++ {
				v := moveRng.Intn(g.N())
				comm := moveRng.Intn(g.N())
				predicted := p.DiffMove(v, comm)
				before := p.Quality()
				p.MoveNode(v, comm)
				after := p.Quality()
				if math.Abs((after-before)-predicted) > 1e-9 {
					t.Fatalf("move %d: v=%d comm=%d predicted %v, actual %v",
						i, v, comm, predicted, after-before)
				}
			}
		})
	}
}

func TestDiffMoveSameCommunityIsZero(t *testing.T) {
	g := triangle(t)
	p := NewCPM(g, 0.5)
	if d := p.DiffMove(0, p.CommunityOf(0)); d != 0 {
		t.Errorf("DiffMove into own community = %v, want 0", d)
	}
}

func TestMoveNodeBookkeeping(t *testing.T) {
	g := triangle(t)
	p := NewCPM(g, 0.5)

	p.MoveNode(0, 1)
	if p.NCommunities() != 2 {
		t.Errorf("NCommunities() = %d, want 2", p.NCommunities())
	}
	if p.CommunitySize(1) != 2 {
		t.Errorf("CommunitySize(1) = %d, want 2", p.CommunitySize(1))
	}
	if p.CommunitySize(0) != 0 {
		t.Errorf("CommunitySize(0) = %d, want 0", p.CommunitySize(0))
	}

	p.MoveNode(2, 1)
	if p.NCommunities() != 1 {
		t.Errorf("NCommunities() = %d, want 1", p.NCommunities())
	}
}

func TestEmptyCommunityReusesVacatedSlot(t *testing.T) {
	g := triangle(t)
	p := NewCPM(g, 0.5)

	p.MoveNode(0, 1) // community 0 is now empty
	if comm := p.EmptyCommunity(); comm != 0 {
		t.Errorf("EmptyCommunity() = %d, want vacated slot 0", comm)
	}

	p.MoveNode(0, 0)
	p.MoveNode(1, 0)
	p.MoveNode(2, 0) // everything in community 0
	if comm := p.EmptyCommunity(); comm == 0 {
		t.Error("EmptyCommunity() returned an occupied community")
	}
}

func TestRenumberCommunitiesFirstAppearance(t *testing.T) {
	g := graph.New(4)
	p, err := NewCPMFromMembership(g, []int{7, 3, 7, 9}, 1.0)
	if err != nil {
		t.Fatalf("NewCPMFromMembership() failed: %v", err)
	}
	p.RenumberCommunities()

	want := []int{0, 1, 0, 2}
	for v, comm := range p.Membership() {
		if comm != want[v] {
			t.Errorf("membership[%d] = %d, want %d", v, comm, want[v])
		}
	}
	if p.NCommunities() != 3 {
		t.Errorf("NCommunities() = %d, want 3", p.NCommunities())
	}
}

func TestSetMembershipRejectsBadInput(t *testing.T) {
	g := triangle(t)
	p := NewCPM(g, 0.5)

	if err := p.SetMembership([]int{0, 1}); err == nil {
		t.Error("short membership should be rejected")
	}
	if err := p.SetMembership([]int{0, -1, 0}); err == nil {
		t.Error("negative community id should be rejected")
	}
	if err := p.SetMembership([]int{1, 1, 0}); err != nil {
		t.Errorf("valid membership rejected: %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := triangle(t)
	p := NewCPM(g, 0.5)
	clone := p.Clone()

	p.MoveNode(0, 1)
	if clone.CommunityOf(0) != 0 {
		t.Error("mutating the original changed the clone")
	}
	if clone.NCommunities() != 3 {
		t.Errorf("clone NCommunities() = %d, want 3", clone.NCommunities())
	}
}

func TestCreateOnPreservesResolution(t *testing.T) {
	g := triangle(t)
	p := NewCPM(g, 0.7)

	created, err := p.CreateOn(g, []int{0, 0, 1})
	if err != nil {
		t.Fatalf("CreateOn() failed: %v", err)
	}
	rp, ok := created.(ResolutionPartition)
	if !ok {
		t.Fatal("CreateOn() lost the resolution partition interface")
	}
	if rp.ResolutionParameter() != 0.7 {
		t.Errorf("ResolutionParameter() = %v, want 0.7", rp.ResolutionParameter())
	}
}

func TestMembershipEqualIgnoresLabels(t *testing.T) {
	g := graph.New(4)
	a, err := NewCPMFromMembership(g, []int{0, 0, 1, 1}, 1.0)
	if err != nil {
		t.Fatalf("NewCPMFromMembership() failed: %v", err)
	}
	b, err := NewCPMFromMembership(g, []int{5, 5, 2, 2}, 1.0)
	if err != nil {
		t.Fatalf("NewCPMFromMembership() failed: %v", err)
	}
	c, err := NewCPMFromMembership(g, []int{0, 1, 0, 1}, 1.0)
	if err != nil {
		t.Fatalf("NewCPMFromMembership() failed: %v", err)
	}

	if !MembershipEqual(a, b) {
		t.Error("relabelled identical groupings compared unequal")
	}
	if MembershipEqual(a, c) {
		t.Error("different groupings compared equal")
	}
}

func TestSignificanceSingletonQualityIsZero(t *testing.T) {
	g := triangle(t)
	p := NewSignificance(g)
	// Singleton communities have no internal pairs to score
	if q := p.Quality(); q != 0 {
		t.Errorf("singleton significance = %v, want 0", q)
	}
}

func TestCommunities(t *testing.T) {
	g := graph.New(4)
	p, err := NewCPMFromMembership(g, []int{0, 2, 2, 0}, 1.0)
	if err != nil {
		t.Fatalf("NewCPMFromMembership() failed: %v", err)
	}
	comms := p.Communities()
	if len(comms) != 2 {
		t.Fatalf("Communities() = %v, want 2 entries", comms)
	}
	if comms[0] != 0 || comms[1] != 2 {
		t.Errorf("Communities() = %v, want [0 2]", comms)
	}
}
