package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dd0wney/cluso-community/pkg/resultstore"
)

// JobListResponse wraps a page of stored job results
type JobListResponse struct {
	Jobs  []*resultstore.JobResult `json:"jobs"`
	Count int                      `json:"count"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	start := time.Now()
	jobs, err := s.store.ListResults(r.Context(), limit)
	if err != nil {
		s.registry.RecordStoreOperation("list", "error", time.Since(start))
		s.respondError(w, http.StatusInternalServerError, "failed to list job results")
		return
	}
	s.registry.RecordStoreOperation("list", "success", time.Since(start))

	s.respondJSON(w, http.StatusOK, JobListResponse{Jobs: jobs, Count: len(jobs)})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	if id == "" || strings.Contains(id, "/") {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		start := time.Now()
		job, err := s.store.GetResult(r.Context(), id)
		if err != nil {
			if errors.Is(err, resultstore.ErrNotFound) {
				s.registry.RecordStoreOperation("get", "success", time.Since(start))
				s.respondError(w, http.StatusNotFound, "job not found")
				return
			}
			s.registry.RecordStoreOperation("get", "error", time.Since(start))
			s.respondError(w, http.StatusInternalServerError, "failed to load job result")
			return
		}
		s.registry.RecordStoreOperation("get", "success", time.Since(start))
		s.respondJSON(w, http.StatusOK, job)

	case http.MethodDelete:
		start := time.Now()
		if err := s.store.DeleteResult(r.Context(), id); err != nil {
			if errors.Is(err, resultstore.ErrNotFound) {
				s.registry.RecordStoreOperation("delete", "success", time.Since(start))
				s.respondError(w, http.StatusNotFound, "job not found")
				return
			}
			s.registry.RecordStoreOperation("delete", "error", time.Since(start))
			s.respondError(w, http.StatusInternalServerError, "failed to delete job result")
			return
		}
		s.registry.RecordStoreOperation("delete", "success", time.Since(start))
		w.WriteHeader(http.StatusNoContent)

	default:
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
