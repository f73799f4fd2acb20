package graph

import "sort"

// Edge is a weighted half-edge stored in a node's adjacency list
type Edge struct {
	To     int
	Weight float64
}

// Graph is an in-memory weighted undirected graph over nodes 0..n-1.
// Self-loops are stored separately from the adjacency lists. Aggregate
// graphs produced by collapsing communities carry node sizes larger than
// one, so that quality functions keep scoring against the original node set.
type Graph struct {
	adj      [][]Edge
	selfLoop []float64
	size     []int
	strength []float64

	totalWeight float64 // sum of all edge weights, self-loops counted once
	totalSize   int
}

// New creates an empty graph with n nodes, each of size 1
func New(n int) *Graph {
	g := &Graph{
		adj:      make([][]Edge, n),
		selfLoop: make([]float64, n),
		size:     make([]int, n),
		strength: make([]float64, n),
		totalSize: n,
	}
	for i := range g.size {
		g.size[i] = 1
	}
	return g
}

// NewWithSizes creates an empty graph whose nodes carry explicit sizes.
// Used for aggregate graphs where each node stands for a community.
func NewWithSizes(sizes []int) *Graph {
	g := &Graph{
		adj:      make([][]Edge, len(sizes)),
		selfLoop: make([]float64, len(sizes)),
		size:     make([]int, len(sizes)),
		strength: make([]float64, len(sizes)),
	}
	copy(g.size, sizes)
	for _, s := range sizes {
		g.totalSize += s
	}
	return g
}

// AddEdge adds an undirected edge between u and v. An edge with u == v is
// recorded as a self-loop with the full weight.
func (g *Graph) AddEdge(u, v int, weight float64) {
	if u == v {
		g.selfLoop[u] += weight
		g.strength[u] += 2 * weight
		g.totalWeight += weight
		return
	}
	g.adj[u] = append(g.adj[u], Edge{To: v, Weight: weight})
	g.adj[v] = append(g.adj[v], Edge{To: u, Weight: weight})
	g.strength[u] += weight
	g.strength[v] += weight
	g.totalWeight += weight
}

// N returns the number of nodes
func (g *Graph) N() int {
	return len(g.adj)
}

// Neighbors returns the adjacency list of v. The returned slice is owned by
// the graph and must not be modified.
func (g *Graph) Neighbors(v int) []Edge {
	return g.adj[v]
}

// SelfLoop returns the self-loop weight of v
func (g *Graph) SelfLoop(v int) float64 {
	return g.selfLoop[v]
}

// Size returns the node size of v (the number of original nodes v stands for)
func (g *Graph) Size(v int) int {
	return g.size[v]
}

// Strength returns the weighted degree of v, self-loops counted twice
func (g *Graph) Strength(v int) float64 {
	return g.strength[v]
}

// TotalWeight returns the sum of all edge weights, self-loops counted once
func (g *Graph) TotalWeight() float64 {
	return g.totalWeight
}

// TotalSize returns the sum of all node sizes
func (g *Graph) TotalSize() int {
	return g.totalSize
}

// EdgeCount returns the number of distinct edges, self-loops included
func (g *Graph) EdgeCount() int {
	count := 0
	for v := range g.adj {
		count += len(g.adj[v])
		if g.selfLoop[v] != 0 {
			count += 2
		}
	}
	return count / 2
}

// Aggregate collapses the graph according to a community assignment.
// Each community becomes one node whose size is the summed size of its
// members; edges inside a community become a self-loop, edges between
// communities are summed into a single edge. Community ids must be
// contiguous in 0..nComms-1.
func Aggregate(g *Graph, membership []int, nComms int) *Graph {
	sizes := make([]int, nComms)
	for v := 0; v < g.N(); v++ {
		sizes[membership[v]] += g.size[v]
	}
	agg := NewWithSizes(sizes)

	between := make(map[[2]int]float64)
	for v := 0; v < g.N(); v++ {
		cv := membership[v]
		agg.selfLoop[cv] += g.selfLoop[v]
		for _, e := range g.adj[v] {
			cu := membership[e.To]
			if cu == cv {
				// Each internal edge visited from both endpoints
				agg.selfLoop[cv] += e.Weight / 2
			} else if cv < cu {
				between[[2]int{cv, cu}] += e.Weight
			}
		}
	}
	// Append edges in sorted order so that aggregate adjacency lists are
	// deterministic regardless of map iteration order. Optimisation sweeps
	// break ties by visit order, so this matters for reproducible runs.
	pairs := make([][2]int, 0, len(between))
	for pair := range between {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	for _, pair := range pairs {
		w := between[pair]
		agg.adj[pair[0]] = append(agg.adj[pair[0]], Edge{To: pair[1], Weight: w})
		agg.adj[pair[1]] = append(agg.adj[pair[1]], Edge{To: pair[0], Weight: w})
	}

	// Recompute cached strengths and total weight
	for v := 0; v < agg.N(); v++ {
		s := 2 * agg.selfLoop[v]
		for _, e := range agg.adj[v] {
			s += e.Weight
		}
		agg.strength[v] = s
		agg.totalWeight += agg.selfLoop[v]
	}
	for v := 0; v < agg.N(); v++ {
		for _, e := range agg.adj[v] {
			agg.totalWeight += e.Weight / 2
		}
	}
	return agg
}
