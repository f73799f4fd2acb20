package graph

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func TestAddEdgeAccumulates(t *testing.T) {
	g := New(4)
	g.AddEdge(0, 1, 1.0)
	g.AddEdge(1, 2, 2.0)
	g.AddEdge(2, 3, 0.5)

	if g.N() != 4 {
		t.Errorf("N() = %d, want 4", g.N())
	}
	if g.EdgeCount() != 3 {
		t.Errorf("EdgeCount() = %d, want 3", g.EdgeCount())
	}
	if g.TotalWeight() != 3.5 {
		t.Errorf("TotalWeight() = %v, want 3.5", g.TotalWeight())
	}
	if g.Strength(1) != 3.0 {
		t.Errorf("Strength(1) = %v, want 3.0", g.Strength(1))
	}
	if len(g.Neighbors(1)) != 2 {
		t.Errorf("Neighbors(1) has %d entries, want 2", len(g.Neighbors(1)))
	}
}

func TestAddEdgeSelfLoop(t *testing.T) {
	g := New(2)
	g.AddEdge(0, 0, 2.0)

	if g.SelfLoop(0) != 2.0 {
		t.Errorf("SelfLoop(0) = %v, want 2.0", g.SelfLoop(0))
	}
	if len(g.Neighbors(0)) != 0 {
		t.Errorf("self loop should not appear in Neighbors, got %d entries", len(g.Neighbors(0)))
	}
	// A self loop contributes twice to strength, like an undirected stub pair
	if g.Strength(0) != 4.0 {
		t.Errorf("Strength(0) = %v, want 4.0", g.Strength(0))
	}
}

func TestNewWithSizes(t *testing.T) {
	g := NewWithSizes([]int{2, 3, 1})
	if g.N() != 3 {
		t.Errorf("N() = %d, want 3", g.N())
	}
	if g.Size(1) != 3 {
		t.Errorf("Size(1) = %d, want 3", g.Size(1))
	}
	if g.TotalSize() != 6 {
		t.Errorf("TotalSize() = %d, want 6", g.TotalSize())
	}
}

func TestAggregateCollapsesCommunities(t *testing.T) {
	// Two triangles joined by one bridge
	g := New(6)
	g.AddEdge(0, 1, 1)
	g.AddEdge(1, 2, 1)
	g.AddEdge(0, 2, 1)
	g.AddEdge(3, 4, 1)
	g.AddEdge(4, 5, 1)
	g.AddEdge(3, 5, 1)
	g.AddEdge(2, 3, 1)

	agg := Aggregate(g, []int{0, 0, 0, 1, 1, 1}, 2)

	if agg.N() != 2 {
		t.Fatalf("aggregate N() = %d, want 2", agg.N())
	}
	if agg.Size(0) != 3 || agg.Size(1) != 3 {
		t.Errorf("aggregate sizes = %d, %d, want 3, 3", agg.Size(0), agg.Size(1))
	}
	// Three internal edges collapse into a self loop of weight 3
	if agg.SelfLoop(0) != 3 {
		t.Errorf("SelfLoop(0) = %v, want 3", agg.SelfLoop(0))
	}
	nbrs := agg.Neighbors(0)
	if len(nbrs) != 1 || nbrs[0].To != 1 || nbrs[0].Weight != 1 {
		t.Errorf("Neighbors(0) = %v, want one bridge edge of weight 1", nbrs)
	}
	if agg.TotalWeight() != g.TotalWeight() {
		t.Errorf("aggregate TotalWeight() = %v, want %v", agg.TotalWeight(), g.TotalWeight())
	}
}

func TestAggregatePreservesTotalsUnderRandomMembership(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	g := PlantedPartition(3, 5, 0.8, 0.2, rng)

	membership := make([]int, g.N())
	for v := range membership {
		membership[v] = v % 4
	}
	agg := Aggregate(g, membership, 4)

	if math.Abs(agg.TotalWeight()-g.TotalWeight()) > 1e-9 {
		t.Errorf("TotalWeight drifted: %v vs %v", agg.TotalWeight(), g.TotalWeight())
	}
	if agg.TotalSize() != g.TotalSize() {
		t.Errorf("TotalSize drifted: %d vs %d", agg.TotalSize(), g.TotalSize())
	}
}

func TestAggregateDeterministicAdjacency(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	g := PlantedPartition(4, 6, 0.7, 0.3, rng)
	membership := make([]int, g.N())
	for v := range membership {
		membership[v] = v % 5
	}

	a := Aggregate(g, membership, 5)
	b := Aggregate(g, membership, 5)
	for v := 0; v < a.N(); v++ {
		na, nb := a.Neighbors(v), b.Neighbors(v)
		if len(na) != len(nb) {
			t.Fatalf("node %d adjacency lengths differ", v)
		}
		for i := range na {
			if na[i] != nb[i] {
				t.Fatalf("node %d adjacency order differs at %d: %v vs %v", v, i, na[i], nb[i])
			}
		}
	}
}

func TestRing(t *testing.T) {
	g := Ring(5)
	if g.EdgeCount() != 5 {
		t.Errorf("EdgeCount() = %d, want 5", g.EdgeCount())
	}
	for v := 0; v < 5; v++ {
		if len(g.Neighbors(v)) != 2 {
			t.Errorf("node %d has %d neighbours, want 2", v, len(g.Neighbors(v)))
		}
	}
}

func TestComplete(t *testing.T) {
	g := Complete(5)
	if g.EdgeCount() != 10 {
		t.Errorf("EdgeCount() = %d, want 10", g.EdgeCount())
	}
}

func TestLoadEdgeList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edges.txt")
	content := "# comment line\n0 1\n1 2 2.5\n\n2 0 1.0\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	g, err := LoadEdgeList(path)
	if err != nil {
		t.Fatalf("LoadEdgeList() failed: %v", err)
	}
	if g.N() != 3 {
		t.Errorf("N() = %d, want 3", g.N())
	}
	if g.EdgeCount() != 3 {
		t.Errorf("EdgeCount() = %d, want 3", g.EdgeCount())
	}
	if g.TotalWeight() != 4.5 {
		t.Errorf("TotalWeight() = %v, want 4.5", g.TotalWeight())
	}
}

func TestLoadEdgeListErrors(t *testing.T) {
	if _, err := LoadEdgeList(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("missing file should fail")
	}

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(bad, []byte("0 not-a-node\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := LoadEdgeList(bad); err == nil {
		t.Error("malformed line should fail")
	}
}
