package api

import (
	"net/http"
	"testing"

	"github.com/dd0wney/cluso-community/pkg/resultstore"
)

// ringEdges builds the edge list of an n-cycle
func ringEdges(n int) []map[string]int {
	edges := make([]map[string]int, 0, n)
	for i := 0; i < n; i++ {
		edges = append(edges, map[string]int{"source": i, "target": (i + 1) % n})
	}
	return edges
}

// twoCliques builds two complete 4-cliques joined by one bridge edge over
// eight nodes
func twoCliques() []map[string]int {
	edges := make([]map[string]int, 0, 13)
	for base := 0; base < 8; base += 4 {
		for i := base; i < base+4; i++ {
			for j := i + 1; j < base+4; j++ {
				edges = append(edges, map[string]int{"source": i, "target": j})
			}
		}
	}
	edges = append(edges, map[string]int{"source": 3, "target": 4})
	return edges
}

func TestDetectTwoCliques(t *testing.T) {
	s, store := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/detect", map[string]interface{}{
		"nodes":   8,
		"edges":   twoCliques(),
		"quality": "modularity",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp DetectResponse
	decodeBody(t, rec, &resp)
	if resp.Communities != 2 {
		t.Errorf("communities = %d, want 2", resp.Communities)
	}
	if len(resp.Membership) != 8 {
		t.Fatalf("membership length = %d, want 8", len(resp.Membership))
	}
	if resp.Membership[0] != resp.Membership[3] || resp.Membership[4] != resp.Membership[7] {
		t.Error("clique members split across communities")
	}
	if resp.Membership[0] == resp.Membership[4] {
		t.Error("the two cliques were merged")
	}

	stored, err := store.GetResult(t.Context(), resp.JobID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if stored.Status != resultstore.StatusCompleted {
		t.Errorf("stored status = %q, want completed", stored.Status)
	}
	if stored.Kind != resultstore.KindDetect {
		t.Errorf("stored kind = %q, want detect", stored.Kind)
	}
}

func TestDetectHierarchy(t *testing.T) {
	s, store := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/detect", map[string]interface{}{
		"nodes":     8,
		"edges":     twoCliques(),
		"quality":   "modularity",
		"hierarchy": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp HierarchyResponse
	decodeBody(t, rec, &resp)
	if len(resp.Levels) == 0 {
		t.Fatal("hierarchy has no levels")
	}
	last := resp.Levels[len(resp.Levels)-1]
	if last.Communities != resp.Communities {
		t.Errorf("coarsest level has %d communities, final partition has %d",
			last.Communities, resp.Communities)
	}
	for _, lvl := range resp.Levels {
		if len(lvl.Membership) != 8 {
			t.Errorf("level %d membership length = %d, want 8", lvl.Level, len(lvl.Membership))
		}
	}

	stored, err := store.GetResult(t.Context(), resp.JobID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if stored.Kind != resultstore.KindHierarchy {
		t.Errorf("stored kind = %q, want hierarchy", stored.Kind)
	}
	if stored.Levels != len(resp.Levels) {
		t.Errorf("stored levels = %d, want %d", stored.Levels, len(resp.Levels))
	}
}

func TestDetectValidationErrors(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing nodes", map[string]interface{}{"edges": ringEdges(4)}},
		{"edge out of range", map[string]interface{}{
			"nodes": 3,
			"edges": []map[string]int{{"source": 0, "target": 5}},
		}},
		{"unknown quality", map[string]interface{}{"nodes": 4, "quality": "betweenness"}},
		{"unknown field", map[string]interface{}{"nodes": 4, "granularity": 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/api/v1/detect", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDetectMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/detect", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestMultiplexTwoLayers(t *testing.T) {
	s, store := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/multiplex", map[string]interface{}{
		"nodes": 8,
		"layers": []map[string]interface{}{
			{"edges": twoCliques(), "weight": 1.0},
			{"edges": twoCliques(), "weight": 0.5},
		},
		"quality": "modularity",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp MultiplexResponse
	decodeBody(t, rec, &resp)
	if resp.Layers != 2 {
		t.Errorf("layers = %d, want 2", resp.Layers)
	}
	if resp.Communities != 2 {
		t.Errorf("communities = %d, want 2", resp.Communities)
	}

	stored, err := store.GetResult(t.Context(), resp.JobID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if stored.Kind != resultstore.KindMultiplex {
		t.Errorf("stored kind = %q, want multiplex", stored.Kind)
	}
}

func TestMultiplexRequiresLayers(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/multiplex", map[string]interface{}{
		"nodes": 4,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProfileSweep(t *testing.T) {
	s, store := newTestServer(t)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/profile", map[string]interface{}{
		"nodes":          8,
		"edges":          twoCliques(),
		"quality":        "cpm",
		"min_resolution": 0.01,
		"max_resolution": 2.0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp ProfileResponse
	decodeBody(t, rec, &resp)
	if len(resp.Entries) == 0 {
		t.Fatal("profile has no entries")
	}
	for i := 1; i < len(resp.Entries); i++ {
		if resp.Entries[i].Resolution <= resp.Entries[i-1].Resolution {
			t.Errorf("entries not strictly increasing at %d: %g after %g",
				i, resp.Entries[i].Resolution, resp.Entries[i-1].Resolution)
		}
	}
	for i := 1; i < len(resp.Entries); i++ {
		if resp.Entries[i].Communities < resp.Entries[i-1].Communities {
			t.Errorf("community count decreased with resolution at entry %d", i)
		}
	}

	stored, err := store.GetResult(t.Context(), resp.JobID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if stored.Kind != resultstore.KindProfile {
		t.Errorf("stored kind = %q, want profile", stored.Kind)
	}
}

func TestProfileRejectsBadInterval(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/profile", map[string]interface{}{
		"nodes":          4,
		"edges":          ringEdges(4),
		"min_resolution": 2.0,
		"max_resolution": 1.0,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestJobsListAndGet(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	var ids []string
	for i := 0; i < 3; i++ {
		rec := doJSON(t, h, http.MethodPost, "/api/v1/detect", map[string]interface{}{
			"nodes": 6,
			"edges": ringEdges(6),
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("detect status = %d", rec.Code)
		}
		var resp DetectResponse
		decodeBody(t, rec, &resp)
		ids = append(ids, resp.JobID)
	}

	rec := doJSON(t, h, http.MethodGet, "/api/v1/jobs?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list JobListResponse
	decodeBody(t, rec, &list)
	if list.Count != 2 {
		t.Errorf("count = %d, want 2", list.Count)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/jobs/"+ids[0], nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var job resultstore.JobResult
	decodeBody(t, rec, &job)
	if job.ID != ids[0] {
		t.Errorf("job id = %q, want %q", job.ID, ids[0])
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/jobs/no-such-job", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing job status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/v1/jobs/"+ids[1], nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/v1/jobs/"+ids[1], nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deleted job status = %d, want 404", rec.Code)
	}
}

func TestJobsBadLimit(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/jobs?limit=zero", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestConstructorFor(t *testing.T) {
	for _, name := range []string{"", "cpm", "rb_configuration", "modularity", "significance"} {
		if _, err := constructorFor(name); err != nil {
			t.Errorf("constructorFor(%q): %v", name, err)
		}
	}
	if _, err := constructorFor("leading_eigenvector"); err == nil {
		t.Error("expected error for unknown quality function")
	}
}
