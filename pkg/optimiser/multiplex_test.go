package optimiser

import (
	"errors"
	"testing"

	"github.com/dd0wney/cluso-community/pkg/graph"
	"github.com/dd0wney/cluso-community/pkg/partition"
)

func twoLayerRing(t *testing.T, n int) []partition.VertexPartition {
	t.Helper()
	// Layer 1 is the plain ring, layer 2 the same ring with chords
	g1 := graph.Ring(n)
	g2 := graph.Ring(n)
	for v := 0; v < n; v += 4 {
		g2.AddEdge(v, (v+2)%n, 1.0)
	}
	return []partition.VertexPartition{
		partition.NewCPM(g1, 0.1),
		partition.NewCPM(g2, 0.1),
	}
}

func TestMultiplexIdenticalMemberships(t *testing.T) {
	o := newTestOptimiser(t, 8)
	parts := twoLayerRing(t, 16)

	delta, err := o.OptimiseMultiplex(parts, []float64{1.0, 0.5}, -1, nil)
	if err != nil {
		t.Fatalf("OptimiseMultiplex() failed: %v", err)
	}
	if delta <= 0 {
		t.Errorf("OptimiseMultiplex() delta = %v, want > 0", delta)
	}

	m0 := parts[0].Membership()
	m1 := parts[1].Membership()
	for v := range m0 {
		if m0[v] != m1[v] {
			t.Fatalf("layers diverged at node %d: %d vs %d", v, m0[v], m1[v])
		}
	}
}

func TestMultiplexSingleLayer(t *testing.T) {
	o := newTestOptimiser(t, 8)
	parts := twoLayerRing(t, 12)[:1]

	if _, err := o.OptimiseMultiplex(parts, []float64{1.0}, -1, nil); err != nil {
		t.Fatalf("OptimiseMultiplex() failed: %v", err)
	}
	if parts[0].NCommunities() > 12 {
		t.Errorf("NCommunities() = %d exceeds node count", parts[0].NCommunities())
	}
}

func TestMultiplexAlignsLayersBeforeOptimising(t *testing.T) {
	o := newTestOptimiser(t, 15)
	parts := twoLayerRing(t, 8)

	// Start the second layer with a conflicting membership
	if err := parts[1].SetMembership([]int{0, 0, 1, 1, 2, 2, 3, 3}); err != nil {
		t.Fatalf("SetMembership() failed: %v", err)
	}

	if _, err := o.OptimiseMultiplex(parts, []float64{1.0, 1.0}, 1, nil); err != nil {
		t.Fatalf("OptimiseMultiplex() failed: %v", err)
	}
	m0, m1 := parts[0].Membership(), parts[1].Membership()
	for v := range m0 {
		if m0[v] != m1[v] {
			t.Fatalf("layers diverged at node %d after alignment", v)
		}
	}
}

func TestMultiplexFixedMask(t *testing.T) {
	o := newTestOptimiser(t, 6)
	parts := twoLayerRing(t, 12)
	fixed := make([]bool, 12)
	fixed[3] = true
	before := parts[0].CommunityOf(3)

	if _, err := o.OptimiseMultiplex(parts, []float64{1.0, 1.0}, -1, fixed); err != nil {
		t.Fatalf("OptimiseMultiplex() failed: %v", err)
	}
	if parts[0].CommunityOf(3) != before {
		t.Errorf("fixed node 3 moved from community %d to %d", before, parts[0].CommunityOf(3))
	}
}

func TestMultiplexZeroWeightLayerIsInert(t *testing.T) {
	seed := int64(23)

	single := newTestOptimiser(t, seed)
	soloParts := twoLayerRing(t, 16)[:1]
	if _, err := single.OptimiseMultiplex(soloParts, []float64{1.0}, -1, nil); err != nil {
		t.Fatalf("OptimiseMultiplex() failed: %v", err)
	}

	weighted := newTestOptimiser(t, seed)
	// A zero-weight copy of the same ring adds no candidates and no gain
	bothParts := []partition.VertexPartition{
		partition.NewCPM(graph.Ring(16), 0.1),
		partition.NewCPM(graph.Ring(16), 0.1),
	}
	if _, err := weighted.OptimiseMultiplex(bothParts, []float64{1.0, 0.0}, -1, nil); err != nil {
		t.Fatalf("OptimiseMultiplex() failed: %v", err)
	}

	if !partition.MembershipEqual(soloParts[0], bothParts[0]) {
		t.Error("a zero-weight layer changed the optimisation result")
	}
}

func TestMultiplexPreconditions(t *testing.T) {
	o := newTestOptimiser(t, 1)
	parts := twoLayerRing(t, 8)

	tests := []struct {
		name    string
		parts   []partition.VertexPartition
		weights []float64
		fixed   []bool
	}{
		{"no layers", nil, nil, nil},
		{"weight count mismatch", parts, []float64{1.0}, nil},
		{"negative weight", parts, []float64{1.0, -0.5}, nil},
		{"fixed mask mismatch", parts, []float64{1.0, 1.0}, make([]bool, 3)},
		{"node count mismatch", []partition.VertexPartition{
			partition.NewCPM(graph.Ring(8), 0.1),
			partition.NewCPM(graph.Ring(9), 0.1),
		}, []float64{1.0, 1.0}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.OptimiseMultiplex(tt.parts, tt.weights, -1, tt.fixed)
			if !errors.Is(err, ErrPrecondition) {
				t.Errorf("OptimiseMultiplex() error = %v, want ErrPrecondition", err)
			}
		})
	}
}

func TestMultiplexDeterministicUnderSeed(t *testing.T) {
	run := func() []int {
		o := newTestOptimiser(t, 44)
		parts := twoLayerRing(t, 20)
		if _, err := o.OptimiseMultiplex(parts, []float64{1.0, 2.0}, -1, nil); err != nil {
			t.Fatalf("OptimiseMultiplex() failed: %v", err)
		}
		parts[0].RenumberCommunities()
		return append([]int(nil), parts[0].Membership()...)
	}

	a, b := run(), run()
	for v := range a {
		if a[v] != b[v] {
			t.Fatalf("same seed produced different memberships at node %d", v)
		}
	}
}
