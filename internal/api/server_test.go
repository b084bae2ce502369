package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/auditlog"
	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/jobs"
	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/models"
)

type stubReconstructor struct {
	result *models.Reconstruction
	err    error
}

func (s *stubReconstructor) Reconstruct(_ context.Context, jobID string) (*models.Reconstruction, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubJobStore struct {
	jobs map[string]*models.Job
}

func (s *stubJobStore) CreateJob(_ context.Context, job *models.Job) error {
	s.jobs[job.ID] = job
	return nil
}

func (s *stubJobStore) GetJob(_ context.Context, jobID string) (*models.Job, error) {
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, jobs.ErrNotFound
	}
	return job, nil
}

func (s *stubJobStore) ListJobs(_ context.Context, _ int) ([]*models.Job, error) {
	out := make([]*models.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (s *stubJobStore) UpdateJobStatus(_ context.Context, jobID, status string) error {
	job, ok := s.jobs[jobID]
	if !ok {
		return jobs.ErrNotFound
	}
	job.Status = status
	return nil
}

func (s *stubJobStore) Close() error { return nil }

type stubGraph struct {
	stats *models.GraphStats
	err   error
}

func (s *stubGraph) Stats(_ context.Context) (*models.GraphStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.stats, nil
}

func newTestServer(rec Reconstructor, store jobs.Store, graph GraphReader) http.Handler {
	return New(rec, store, graph, nil).Router(0, 0)
}

func knownJobStore() *stubJobStore {
	return &stubJobStore{jobs: map[string]*models.Job{
		"job-1": {ID: "job-1", Status: models.JobStatusCompleted, CreatedAt: time.Now()},
	}}
}

func TestGetReconstruction_OK(t *testing.T) {
	rec := &stubReconstructor{result: &models.Reconstruction{
		JobID:     "job-1",
		Summary:   models.Summary{TotalToolCalls: 5, GraphToolCalls: 2},
		Snapshots: []models.Snapshot{},
		Deltas:    []models.Delta{},
	}}
	router := newTestServer(rec, knownJobStore(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-1/reconstruction", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var payload models.Reconstruction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "job-1", payload.JobID)
	assert.Equal(t, 5, payload.Summary.TotalToolCalls)
	assert.NotNil(t, payload.Deltas)
}

func TestGetReconstruction_UnknownJob(t *testing.T) {
	rec := &stubReconstructor{result: &models.Reconstruction{JobID: "nope"}}
	router := newTestServer(rec, knownJobStore(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nope/reconstruction", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetReconstruction_AuditLogDown(t *testing.T) {
	rec := &stubReconstructor{err: fmt.Errorf("%w: dial tcp refused", auditlog.ErrUnavailable)}
	router := newTestServer(rec, knownJobStore(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-1/reconstruction", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "audit log unavailable")
}

func TestGetJob(t *testing.T) {
	router := newTestServer(&stubReconstructor{}, knownJobStore(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var job models.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, "job-1", job.ID)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListJobs(t *testing.T) {
	router := newTestServer(&stubReconstructor{}, knownJobStore(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Jobs []*models.Job `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Len(t, payload.Jobs, 1)
}

func TestGetGraphStats(t *testing.T) {
	graph := &stubGraph{stats: &models.GraphStats{Nodes: 42, Relationships: 17}}
	router := newTestServer(&stubReconstructor{}, knownJobStore(), graph)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/graph/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.GraphStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(42), stats.Nodes)
}

func TestGetGraphStats_NotConfigured(t *testing.T) {
	router := newTestServer(&stubReconstructor{}, knownJobStore(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/graph/stats", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

type failingChecker struct{}

func (failingChecker) HealthCheck(context.Context) error {
	return fmt.Errorf("connection refused")
}

type okChecker struct{}

func (okChecker) HealthCheck(context.Context) error { return nil }

func TestHealth(t *testing.T) {
	server := New(&stubReconstructor{}, nil, nil, nil)
	server.AddHealthCheck("audit_log", okChecker{})
	router := server.Router(0, 0)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"audit_log":"ok"`)

	server.AddHealthCheck("jobs", failingChecker{})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRateLimit_FractionalRateStillAdmits(t *testing.T) {
	// rps below 1 with no explicit burst must still leave one token in
	// the bucket, or every request would be rejected.
	router := New(&stubReconstructor{}, nil, nil, nil).Router(0.5, 0)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRequestIDHeader(t *testing.T) {
	router := newTestServer(&stubReconstructor{}, knownJobStore(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
