package graph

import "math/rand"

// Ring builds a cycle of n nodes with unit edge weights
func Ring(n int) *Graph {
	g := New(n)
	for i := 0; i < n; i++ {
		g.AddEdge(i, (i+1)%n, 1.0)
	}
	return g
}

// Complete builds a complete graph on n nodes with unit edge weights
func Complete(n int) *Graph {
	g := New(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			g.AddEdge(i, j, 1.0)
		}
	}
	return g
}

// PlantedPartition builds a random graph with nComms equally sized groups of
// groupSize nodes. Node pairs inside a group are connected with probability
// pIntra, pairs across groups with probability pInter.
func PlantedPartition(nComms, groupSize int, pIntra, pInter float64, rng *rand.Rand) *Graph {
	n := nComms * groupSize
	g := New(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			p := pInter
			if i/groupSize == j/groupSize {
				p = pIntra
			}
			if rng.Float64() < p {
				g.AddEdge(i, j, 1.0)
			}
		}
	}
	return g
}
