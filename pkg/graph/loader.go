package graph

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadEdgeList reads a whitespace-separated edge list file. Each non-empty
// line is "u v" or "u v weight" with 0-based node ids; lines starting with
// '#' are skipped. The node count is one more than the largest id seen.
func LoadEdgeList(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open edge list: %w", err)
	}
	defer f.Close()

	type rawEdge struct {
		u, v int
		w    float64
	}
	edges := make([]rawEdge, 0)
	maxID := -1

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("edge list line %d: expected at least 2 fields, got %d", lineNo, len(fields))
		}
		u, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("edge list line %d: bad source id %q: %w", lineNo, fields[0], err)
		}
		v, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("edge list line %d: bad target id %q: %w", lineNo, fields[1], err)
		}
		if u < 0 || v < 0 {
			return nil, fmt.Errorf("edge list line %d: negative node id", lineNo)
		}
		w := 1.0
		if len(fields) >= 3 {
			w, err = strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, fmt.Errorf("edge list line %d: bad weight %q: %w", lineNo, fields[2], err)
			}
		}
		if u > maxID {
			maxID = u
		}
		if v > maxID {
			maxID = v
		}
		edges = append(edges, rawEdge{u: u, v: v, w: w})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read edge list: %w", err)
	}

	g := New(maxID + 1)
	for _, e := range edges {
		g.AddEdge(e.u, e.v, e.w)
	}
	return g, nil
}
