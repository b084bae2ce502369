// Package api exposes the cockpit backend over HTTP. Routing and
// middleware live here; all domain logic stays in the injected services.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/auditlog"
	apperrors "github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/errors"
	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/jobs"
	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/models"
)

// Reconstructor replays a job's audit trail into the timeline payload.
type Reconstructor interface {
	Reconstruct(ctx context.Context, jobID string) (*models.Reconstruction, error)
}

// GraphReader supplies live-graph aggregate stats for the comparison view.
type GraphReader interface {
	Stats(ctx context.Context) (*models.GraphStats, error)
}

// HealthChecker is implemented by every backing store the health endpoint
// probes.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server holds the HTTP server dependencies. Jobs and graph are optional;
// their endpoints degrade when nil.
type Server struct {
	reconstructor Reconstructor
	jobStore      jobs.Store
	graph         GraphReader
	health        map[string]HealthChecker
	logger        *slog.Logger
}

// New creates an API server around the given collaborators.
func New(reconstructor Reconstructor, jobStore jobs.Store, graph GraphReader, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		reconstructor: reconstructor,
		jobStore:      jobStore,
		graph:         graph,
		health:        make(map[string]HealthChecker),
		logger:        logger.With("component", "api"),
	}
}

// AddHealthCheck registers a named dependency with the health endpoint.
func (s *Server) AddHealthCheck(name string, checker HealthChecker) {
	s.health[name] = checker
}

// Router assembles the chi route tree with the standard middleware chain.
func (s *Server) Router(rateLimit float64, rateBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(s.logger))
	if rateLimit > 0 {
		r.Use(RateLimit(rateLimit, rateBurst))
	}

	r.Get("/health", s.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/jobs", s.ListJobs)
		r.Get("/jobs/{jobID}", s.GetJob)
		r.Get("/jobs/{jobID}/reconstruction", s.GetReconstruction)
		r.Get("/graph/stats", s.GetGraphStats)
	})
	return r
}

// GetReconstruction handles GET /api/v1/jobs/{jobID}/reconstruction.
// An unreachable audit log maps to 503, never to an empty payload: the
// caller must be able to tell "no data" from "collaborator down".
func (s *Server) GetReconstruction(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		s.writeError(w, http.StatusBadRequest, "job id required")
		return
	}

	if s.jobStore != nil {
		if _, err := s.jobStore.GetJob(r.Context(), jobID); err != nil {
			if errors.Is(err, jobs.ErrNotFound) {
				s.writeError(w, http.StatusNotFound, "job not found")
				return
			}
			s.logger.Error("job lookup failed", "job_id", jobID, "error", err)
			s.writeError(w, http.StatusInternalServerError, "job lookup failed")
			return
		}
	}

	result, err := s.reconstructor.Reconstruct(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, auditlog.ErrUnavailable) || apperrors.IsType(err, apperrors.ErrorTypeExternal) {
			s.logger.Error("audit log unavailable", "job_id", jobID, "error", err)
			s.writeError(w, http.StatusServiceUnavailable, "audit log unavailable")
			return
		}
		s.logger.Error("reconstruction failed", "job_id", jobID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "reconstruction failed")
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// ListJobs handles GET /api/v1/jobs.
func (s *Server) ListJobs(w http.ResponseWriter, r *http.Request) {
	if s.jobStore == nil {
		s.writeError(w, http.StatusServiceUnavailable, "job store not configured")
		return
	}
	jobList, err := s.jobStore.ListJobs(r.Context(), 0)
	if err != nil {
		s.logger.Error("job list failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "job list failed")
		return
	}
	if jobList == nil {
		jobList = []*models.Job{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": jobList})
}

// GetJob handles GET /api/v1/jobs/{jobID}.
func (s *Server) GetJob(w http.ResponseWriter, r *http.Request) {
	if s.jobStore == nil {
		s.writeError(w, http.StatusServiceUnavailable, "job store not configured")
		return
	}
	job, err := s.jobStore.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.logger.Error("job lookup failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "job lookup failed")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

// GetGraphStats handles GET /api/v1/graph/stats.
func (s *Server) GetGraphStats(w http.ResponseWriter, r *http.Request) {
	if s.graph == nil {
		s.writeError(w, http.StatusServiceUnavailable, "live graph not configured")
		return
	}
	stats, err := s.graph.Stats(r.Context())
	if err != nil {
		s.logger.Error("graph stats failed", "error", err)
		s.writeError(w, http.StatusServiceUnavailable, "live graph unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// Health handles GET /health, probing every registered dependency.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := make(map[string]string, len(s.health))
	for name, checker := range s.health {
		if err := checker.HealthCheck(r.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks[name] = "ok"
		}
	}
	s.writeJSON(w, status, map[string]any{
		"status": http.StatusText(status),
		"checks": checks,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
