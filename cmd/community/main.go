package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/dd0wney/cluso-community/pkg/graph"
	"github.com/dd0wney/cluso-community/pkg/localsearch"
	"github.com/dd0wney/cluso-community/pkg/optimiser"
	"github.com/dd0wney/cluso-community/pkg/partition"
	"github.com/dd0wney/cluso-community/pkg/snapshot"
)

const usage = `community - community detection on edge list graphs

Usage:
  community detect    -input FILE [-quality NAME] [-resolution R] [-iterations N] [-seed S] [-snapshot FILE]
  community hierarchy -input FILE [-quality NAME] [-resolution R] [-iterations N] [-seed S] [-snapshot FILE]
  community profile   -input FILE [-quality NAME] [-min R] [-max R] [-linear] [-seed S] [-snapshot FILE]
  community inspect   -input SNAPSHOT

Quality functions: cpm, rb_configuration, modularity, significance
(profile supports cpm and rb_configuration only)

Edge list format: one "u v [weight]" per line, 0-based ids, '#' comments.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "detect":
		err = runDetect(os.Args[2:], false)
	case "hierarchy":
		err = runDetect(os.Args[2:], true)
	case "profile":
		err = runProfile(os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func constructorFor(quality string) (partition.Constructor, error) {
	switch quality {
	case "", "modularity":
		return partition.ModularityConstructor, nil
	case "cpm":
		return partition.CPMConstructor, nil
	case "rb_configuration":
		return partition.RBConfigurationConstructor, nil
	case "significance":
		return partition.SignificanceConstructor, nil
	default:
		return nil, fmt.Errorf("unknown quality function %q", quality)
	}
}

func newOptimiser(considerComms string, seed int64) (*optimiser.Optimiser, error) {
	cfg := optimiser.DefaultConfig()
	if considerComms != "" {
		mode, err := localsearch.ParseConsiderMode(considerComms)
		if err != nil {
			return nil, err
		}
		cfg.ConsiderComms = mode
	}
	cfg.Seed = seed
	return optimiser.New(cfg)
}

func runDetect(args []string, hierarchical bool) error {
	name := "detect"
	if hierarchical {
		name = "hierarchy"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	input := fs.String("input", "", "Edge list file (required)")
	quality := fs.String("quality", "modularity", "Quality function")
	resolution := fs.Float64("resolution", 1.0, "Resolution parameter")
	iterations := fs.Int("iterations", -1, "Pass budget; negative runs until converged")
	seed := fs.Int64("seed", 0, "Random seed for node visit order")
	considerComms := fs.String("consider", "", "Candidate community selection mode")
	snapshotPath := fs.String("snapshot", "", "Write result snapshot to this file")
	asJSON := fs.Bool("json", false, "Emit the full result as JSON")
	fs.Parse(args)

	if *input == "" {
		return fmt.Errorf("-input is required")
	}

	g, err := graph.LoadEdgeList(*input)
	if err != nil {
		return err
	}
	construct, err := constructorFor(*quality)
	if err != nil {
		return err
	}
	opt, err := newOptimiser(*considerComms, *seed)
	if err != nil {
		return err
	}

	if hierarchical {
		p := construct(g, *resolution)
		final, levels, err := opt.OptimiseHierarchical(p, *iterations)
		if err != nil {
			return err
		}

		if *asJSON {
			out := map[string]interface{}{
				"quality":     final.Quality(),
				"communities": final.NCommunities(),
				"levels":      len(levels),
				"membership":  final.Membership(),
			}
			return json.NewEncoder(os.Stdout).Encode(out)
		}

		fmt.Printf("nodes:       %d\n", g.N())
		fmt.Printf("edges:       %d\n", g.EdgeCount())
		fmt.Printf("levels:      %d\n", len(levels))
		for i, lvl := range levels {
			fmt.Printf("  level %-2d   %d communities, quality %.6f\n", i, lvl.NCommunities(), lvl.Quality())
		}
		fmt.Printf("communities: %d\n", final.NCommunities())
		fmt.Printf("quality:     %.6f\n", final.Quality())

		if *snapshotPath != "" {
			return writeHierarchySnapshot(*snapshotPath, *resolution, final, levels)
		}
		return nil
	}

	final, stable, err := opt.FindPartition(g, construct, *resolution, *iterations)
	if err != nil {
		return err
	}

	if *asJSON {
		out := map[string]interface{}{
			"quality":     final.Quality(),
			"communities": final.NCommunities(),
			"stable":      stable,
			"membership":  final.Membership(),
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	fmt.Printf("nodes:       %d\n", g.N())
	fmt.Printf("edges:       %d\n", g.EdgeCount())
	fmt.Printf("communities: %d\n", final.NCommunities())
	fmt.Printf("quality:     %.6f\n", final.Quality())
	fmt.Printf("stable:      %v\n", stable)

	if *snapshotPath != "" {
		return writePartitionSnapshot(*snapshotPath, snapshot.PartitionRecord{
			Resolution: *resolution,
			Quality:    final.Quality(),
			Stable:     stable,
			Membership: final.Membership(),
		})
	}
	return nil
}

func runProfile(args []string) error {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	input := fs.String("input", "", "Edge list file (required)")
	quality := fs.String("quality", "cpm", "Quality function (cpm or rb_configuration)")
	minRes := fs.Float64("min", 0.01, "Lower resolution bound")
	maxRes := fs.Float64("max", 2.0, "Upper resolution bound")
	linear := fs.Bool("linear", false, "Use linear bisection midpoints")
	iterations := fs.Int("iterations", 1, "Pass budget per expanded resolution")
	seed := fs.Int64("seed", 0, "Random seed for node visit order")
	snapshotPath := fs.String("snapshot", "", "Write profile snapshot to this file")
	asJSON := fs.Bool("json", false, "Emit the full profile as JSON")
	fs.Parse(args)

	if *input == "" {
		return fmt.Errorf("-input is required")
	}

	g, err := graph.LoadEdgeList(*input)
	if err != nil {
		return err
	}
	construct, err := constructorFor(*quality)
	if err != nil {
		return err
	}
	opt, err := newOptimiser("", *seed)
	if err != nil {
		return err
	}

	opts := optimiser.DefaultProfileOptions()
	opts.LinearBisection = *linear
	opts.NumberIterations = *iterations

	profile, err := opt.ResolutionProfile(g, construct, *minRes, *maxRes, opts)
	if err != nil {
		return err
	}

	if *asJSON {
		entries := make([]map[string]interface{}, 0, len(profile))
		for _, p := range profile {
			entries = append(entries, map[string]interface{}{
				"resolution":  p.ResolutionParameter(),
				"quality":     p.Quality(),
				"communities": p.NCommunities(),
				"membership":  p.Membership(),
			})
		}
		return json.NewEncoder(os.Stdout).Encode(entries)
	}

	fmt.Printf("%-14s %-14s %s\n", "resolution", "quality", "communities")
	for _, p := range profile {
		fmt.Printf("%-14.6g %-14.6f %d\n", p.ResolutionParameter(), p.Quality(), p.NCommunities())
	}

	if *snapshotPath != "" {
		return writeProfileSnapshot(*snapshotPath, profile)
	}
	return nil
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	input := fs.String("input", "", "Snapshot file (required)")
	fs.Parse(args)

	if *input == "" {
		return fmt.Errorf("-input is required")
	}

	reader, err := snapshot.OpenMapped(*input)
	if err != nil {
		return err
	}
	defer reader.Close()

	fmt.Printf("records: %d\n", reader.Count())
	for i := 0; i < reader.Count(); i++ {
		rec, err := reader.Partition(i)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		recKind, err := reader.Kind(i)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		kind := "partition"
		switch recKind {
		case snapshot.KindHierarchyLevel:
			kind = fmt.Sprintf("level %d", rec.Level)
		case snapshot.KindProfileEntry:
			kind = "profile"
		}
		comms := countCommunities(rec.Membership)
		fmt.Printf("  %-10s resolution %-10.6g quality %-12.6f communities %d\n",
			kind, rec.Resolution, rec.Quality, comms)
	}
	return nil
}

func countCommunities(membership []int) int {
	seen := make(map[int]struct{}, len(membership))
	for _, c := range membership {
		seen[c] = struct{}{}
	}
	return len(seen)
}

func writePartitionSnapshot(path string, rec snapshot.PartitionRecord) error {
	w, err := snapshot.NewWriter(path)
	if err != nil {
		return err
	}
	if _, err := w.AppendPartition(snapshot.KindPartition, rec); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func writeHierarchySnapshot(path string, resolution float64, final partition.VertexPartition, levels []partition.VertexPartition) error {
	w, err := snapshot.NewWriter(path)
	if err != nil {
		return err
	}
	if _, err := w.AppendPartition(snapshot.KindPartition, snapshot.PartitionRecord{
		Resolution: resolution,
		Quality:    final.Quality(),
		Membership: final.Membership(),
	}); err != nil {
		w.Close()
		return err
	}
	for i, lvl := range levels {
		if _, err := w.AppendPartition(snapshot.KindHierarchyLevel, snapshot.PartitionRecord{
			Resolution: resolution,
			Quality:    lvl.Quality(),
			Level:      i,
			Membership: lvl.Membership(),
		}); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

func writeProfileSnapshot(path string, profile []partition.ResolutionPartition) error {
	w, err := snapshot.NewWriter(path)
	if err != nil {
		return err
	}
	for _, p := range profile {
		if _, err := w.AppendPartition(snapshot.KindProfileEntry, snapshot.PartitionRecord{
			Resolution: p.ResolutionParameter(),
			Quality:    p.Quality(),
			Membership: p.Membership(),
		}); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
