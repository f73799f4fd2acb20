package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-community/pkg/graph"
	"github.com/dd0wney/cluso-community/pkg/localsearch"
	"github.com/dd0wney/cluso-community/pkg/logging"
	"github.com/dd0wney/cluso-community/pkg/optimiser"
	"github.com/dd0wney/cluso-community/pkg/partition"
	"github.com/dd0wney/cluso-community/pkg/resultstore"
	"github.com/dd0wney/cluso-community/pkg/snapshot"
	"github.com/dd0wney/cluso-community/pkg/validation"
)

// constructorFor maps a quality function name to its partition constructor.
// An empty name selects modularity.
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

// buildGraph converts request edges into a graph. Unweighted edges default
// to weight one.
func buildGraph(nodes int, edges []validation.EdgeInput) *graph.Graph {
	g := graph.New(nodes)
	for _, e := range edges {
		w := e.Weight
		if w == 0 {
			w = 1
		}
		g.AddEdge(e.Source, e.Target, w)
	}
	return g
}

// iterationBudget maps the wire value onto the optimiser's budget semantics:
// an omitted budget means run until no pass improves quality
func iterationBudget(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

func resolutionOrDefault(r float64) float64 {
	if r == 0 {
		return 1.0
	}
	return r
}

// optimiserFor returns the shared optimiser, or a per-request one when the
// request overrides candidate selection or the seed
func (s *Server) optimiserFor(considerComms string, seed int64) (*optimiser.Optimiser, error) {
	if considerComms == "" && seed == 0 {
		return s.opt, nil
	}

	cfg := s.cfg.Optimiser
	if considerComms != "" {
		mode, err := localsearch.ParseConsiderMode(considerComms)
		if err != nil {
			return nil, err
		}
		cfg.ConsiderComms = mode
	}
	cfg.Seed = seed

	opt, err := optimiser.New(cfg)
	if err != nil {
		return nil, err
	}
	opt.SetLogger(s.logger)
	opt.SetMetrics(s.registry)
	return opt, nil
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req validation.DetectRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	if err := validation.ValidateDetectRequest(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	construct, err := constructorFor(req.Quality)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	opt, err := s.optimiserFor(req.ConsiderComms, req.Seed)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	g := buildGraph(req.Nodes, req.Edges)
	s.registry.SetGraphSize(g.N(), g.EdgeCount())

	resolution := resolutionOrDefault(req.Resolution)
	budget := iterationBudget(req.Iterations)
	jobID := uuid.New().String()
	kind := resultstore.KindDetect
	if req.Hierarchy {
		kind = resultstore.KindHierarchy
	}
	start := time.Now()

	if req.Hierarchy {
		p := construct(g, resolution)
		final, levels, err := opt.OptimiseHierarchical(p, budget)
		if err != nil {
			s.failJob(r, w, jobID, kind, start, err)
			return
		}
		elapsed := time.Since(start)

		resp := HierarchyResponse{
			JobID:       jobID,
			Quality:     final.Quality(),
			Communities: final.NCommunities(),
			Resolution:  resolution,
			Membership:  final.Membership(),
			Levels:      make([]HierarchyLevel, 0, len(levels)),
			DurationMS:  elapsed.Milliseconds(),
		}
		for i, lvl := range levels {
			resp.Levels = append(resp.Levels, HierarchyLevel{
				Level:       i,
				Communities: lvl.NCommunities(),
				Membership:  lvl.Membership(),
			})
		}

		s.registry.SetCommunities(final.NCommunities())
		s.registry.SetHierarchyDepth(len(levels))
		s.completeJob(r, jobID, kind, start, &resultstore.JobResult{
			ID:          jobID,
			Kind:        kind,
			Quality:     resp.Quality,
			Communities: resp.Communities,
			Levels:      len(levels),
			Resolution:  resolution,
			Membership:  resp.Membership,
		})
		s.snapshotHierarchy(jobID, resolution, final, levels)
		s.respondJSON(w, http.StatusOK, resp)
		return
	}

	final, stable, err := opt.FindPartition(g, construct, resolution, budget)
	if err != nil {
		s.failJob(r, w, jobID, kind, start, err)
		return
	}
	elapsed := time.Since(start)

	resp := DetectResponse{
		JobID:       jobID,
		Quality:     final.Quality(),
		Communities: final.NCommunities(),
		Resolution:  resolution,
		Membership:  final.Membership(),
		DurationMS:  elapsed.Milliseconds(),
	}

	s.registry.SetCommunities(final.NCommunities())
	s.completeJob(r, jobID, kind, start, &resultstore.JobResult{
		ID:          jobID,
		Kind:        kind,
		Quality:     resp.Quality,
		Communities: resp.Communities,
		Resolution:  resolution,
		Membership:  resp.Membership,
	})
	s.snapshotPartition(jobID, snapshot.PartitionRecord{
		Resolution: resolution,
		Quality:    resp.Quality,
		Stable:     stable,
		Membership: resp.Membership,
	})
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMultiplex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req validation.MultiplexRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	if err := validation.ValidateMultiplexRequest(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	construct, err := constructorFor(req.Quality)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	opt, err := s.optimiserFor("", req.Seed)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resolution := resolutionOrDefault(req.Resolution)
	parts := make([]partition.VertexPartition, 0, len(req.Layers))
	weights := make([]float64, 0, len(req.Layers))
	for _, layer := range req.Layers {
		g := buildGraph(req.Nodes, layer.Edges)
		parts = append(parts, construct(g, resolution))
		lw := layer.Weight
		if lw == 0 {
			lw = 1
		}
		weights = append(weights, lw)
	}

	budget := iterationBudget(req.Iterations)
	jobID := uuid.New().String()
	start := time.Now()

	quality, err := opt.OptimiseMultiplex(parts, weights, budget, nil)
	if err != nil {
		s.failJob(r, w, jobID, resultstore.KindMultiplex, start, err)
		return
	}
	elapsed := time.Since(start)

	first := parts[0]
	resp := MultiplexResponse{
		JobID:       jobID,
		Quality:     quality,
		Communities: first.NCommunities(),
		Layers:      len(parts),
		Membership:  first.Membership(),
		DurationMS:  elapsed.Milliseconds(),
	}

	s.registry.SetCommunities(resp.Communities)
	s.completeJob(r, jobID, resultstore.KindMultiplex, start, &resultstore.JobResult{
		ID:          jobID,
		Kind:        resultstore.KindMultiplex,
		Quality:     quality,
		Communities: resp.Communities,
		Resolution:  resolution,
		Membership:  resp.Membership,
	})
	s.snapshotPartition(jobID, snapshot.PartitionRecord{
		Resolution: resolution,
		Quality:    quality,
		Membership: resp.Membership,
	})
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req validation.ProfileRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	if err := validation.ValidateProfileRequest(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	quality := req.Quality
	if quality == "" {
		quality = "cpm"
	}
	construct, err := constructorFor(quality)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	opt, err := s.optimiserFor("", req.Seed)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	g := buildGraph(req.Nodes, req.Edges)
	s.registry.SetGraphSize(g.N(), g.EdgeCount())

	opts := optimiser.DefaultProfileOptions()
	opts.LinearBisection = req.LinearBisection
	if req.MinDiffResolution > 0 {
		opts.MinDiffResolution = req.MinDiffResolution
	}
	if req.Iterations != 0 {
		opts.NumberIterations = iterationBudget(req.Iterations)
	}

	jobID := uuid.New().String()
	start := time.Now()

	profile, err := opt.ResolutionProfile(g, construct, req.MinResolution, req.MaxResolution, opts)
	if err != nil {
		s.failJob(r, w, jobID, resultstore.KindProfile, start, err)
		return
	}
	elapsed := time.Since(start)

	resp := ProfileResponse{
		JobID:      jobID,
		Entries:    make([]ProfileEntry, 0, len(profile)),
		DurationMS: elapsed.Milliseconds(),
	}
	for _, p := range profile {
		resp.Entries = append(resp.Entries, ProfileEntry{
			Resolution:  p.ResolutionParameter(),
			Quality:     p.Quality(),
			Communities: p.NCommunities(),
			Membership:  p.Membership(),
		})
	}

	result := &resultstore.JobResult{
		ID:         jobID,
		Kind:       resultstore.KindProfile,
		Resolution: req.MaxResolution,
	}
	if len(profile) > 0 {
		last := profile[len(profile)-1]
		result.Quality = last.Quality()
		result.Communities = last.NCommunities()
		result.Membership = last.Membership()
	}
	s.completeJob(r, jobID, resultstore.KindProfile, start, result)
	s.snapshotProfile(jobID, profile)
	s.respondJSON(w, http.StatusOK, resp)
}

// decodeRequest decodes a JSON body, translating size and syntax errors
// into 4xx responses. Returns false when a response was already written.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", maxBytesErr.Limit))
			return false
		}
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// failJob records a failed run and maps orchestration errors onto status
// codes. Precondition violations are the caller's fault.
func (s *Server) failJob(r *http.Request, w http.ResponseWriter, jobID, kind string, start time.Time, err error) {
	elapsed := time.Since(start)
	s.registry.RecordJob(kind, resultstore.StatusFailed, elapsed)
	s.saveResult(r, &resultstore.JobResult{
		ID:         jobID,
		Kind:       kind,
		Status:     resultstore.StatusFailed,
		Error:      err.Error(),
		CreatedAt:  start,
		DurationMS: elapsed.Milliseconds(),
	})

	s.logger.Warn("detection job failed",
		logging.String("job_id", jobID),
		logging.String("kind", kind),
		logging.Error(err))

	if errors.Is(err, optimiser.ErrPrecondition) {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

// completeJob persists a finished run and ships it to the exporter
func (s *Server) completeJob(r *http.Request, jobID, kind string, start time.Time, result *resultstore.JobResult) {
	elapsed := time.Since(start)
	now := time.Now()
	result.Status = resultstore.StatusCompleted
	result.CreatedAt = start
	result.CompletedAt = &now
	result.DurationMS = elapsed.Milliseconds()

	s.registry.RecordJob(kind, resultstore.StatusCompleted, elapsed)
	s.saveResult(r, result)

	if s.exporter != nil {
		if err := s.exporter.ExportResult(r.Context(), result); err != nil {
			s.logger.Warn("result export failed",
				logging.String("job_id", jobID),
				logging.Error(err))
		}
	}
}

func (s *Server) saveResult(r *http.Request, result *resultstore.JobResult) {
	start := time.Now()
	if err := s.store.SaveResult(r.Context(), result); err != nil {
		s.registry.RecordStoreOperation("save", "error", time.Since(start))
		s.logger.Error("failed to persist job result",
			logging.String("job_id", result.ID),
			logging.Error(err))
		return
	}
	s.registry.RecordStoreOperation("save", "success", time.Since(start))
}

// snapshotPartition writes a single-partition snapshot file for a job
func (s *Server) snapshotPartition(jobID string, rec snapshot.PartitionRecord) {
	s.writeSnapshot(jobID, func(w *snapshot.Writer) error {
		_, err := w.AppendPartition(snapshot.KindPartition, rec)
		return err
	})
}

func (s *Server) snapshotHierarchy(jobID string, resolution float64, final partition.VertexPartition, levels []partition.VertexPartition) {
	s.writeSnapshot(jobID, func(w *snapshot.Writer) error {
		if _, err := w.AppendPartition(snapshot.KindPartition, snapshot.PartitionRecord{
			Resolution: resolution,
			Quality:    final.Quality(),
			Membership: final.Membership(),
		}); err != nil {
			return err
		}
		for i, lvl := range levels {
			if _, err := w.AppendPartition(snapshot.KindHierarchyLevel, snapshot.PartitionRecord{
				Resolution: resolution,
				Quality:    lvl.Quality(),
				Level:      i,
				Membership: lvl.Membership(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Server) snapshotProfile(jobID string, profile []partition.ResolutionPartition) {
	s.writeSnapshot(jobID, func(w *snapshot.Writer) error {
		for _, p := range profile {
			if _, err := w.AppendPartition(snapshot.KindProfileEntry, snapshot.PartitionRecord{
				Resolution: p.ResolutionParameter(),
				Quality:    p.Quality(),
				Membership: p.Membership(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeSnapshot runs one snapshot write cycle, recording its outcome.
// Snapshot failures never fail the request.
func (s *Server) writeSnapshot(jobID string, fill func(*snapshot.Writer) error) {
	if s.cfg.SnapshotDir == "" {
		return
	}
	start := time.Now()

	err := func() error {
		if err := os.MkdirAll(s.cfg.SnapshotDir, 0o755); err != nil {
			return err
		}
		path := filepath.Join(s.cfg.SnapshotDir, jobID+".snap")
		w, err := snapshot.NewWriter(path)
		if err != nil {
			return err
		}
		if err := fill(w); err != nil {
			w.Close()
			return err
		}
		stats := w.Stats()
		if err := w.Close(); err != nil {
			return err
		}
		s.registry.RecordSnapshotSize(int64(stats.BytesCompressed))
		return nil
	}()

	if err != nil {
		s.registry.RecordSnapshotOperation("write", "error", time.Since(start))
		s.logger.Error("snapshot write failed",
			logging.String("job_id", jobID),
			logging.Error(err))
		return
	}
	s.registry.RecordSnapshotOperation("write", "success", time.Since(start))
}
