package reconstruct

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/auditlog"
	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/cache"
	apperrors "github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/errors"
	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/models"
)

// Service reconstructs the graph-change timeline for one job from its
// audit trail. The audit-log store is injected at construction time;
// there is no process-wide handle. One call allocates its own state, so
// concurrent requests never share anything mutable.
type Service struct {
	store    auditlog.Store
	cache    cache.Cache // optional; nil disables caching
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewService creates a reconstruction service. cache may be nil; a zero
// ttl falls back to the cache package default.
func NewService(store auditlog.Store, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &Service{
		store:    store,
		cache:    c,
		cacheTTL: ttl,
		logger:   logger.With("component", "reconstruct"),
	}
}

// Reconstruct replays the job's graph mutation statements and returns
// deltas, periodic snapshots, and aggregate counts. The only suspension
// point is the upstream fetch; once records are in hand the replay is
// pure computation, so a cancelled fetch leaves no partial state behind.
func (s *Service) Reconstruct(ctx context.Context, jobID string) (*models.Reconstruction, error) {
	records, err := s.store.ListToolCalls(ctx, jobID)
	if err != nil {
		return nil, apperrors.ExternalError(err, "fetching audit trail failed")
	}
	total, err := s.store.CountToolCalls(ctx, jobID)
	if err != nil {
		return nil, apperrors.ExternalError(err, "counting tool calls failed")
	}

	graphRecords := make([]models.AuditRecord, 0, len(records))
	for _, rec := range records {
		if rec.ToolName == models.GraphToolName {
			graphRecords = append(graphRecords, rec)
		}
	}

	// A job that ran but touched no graph is not an error: the caller can
	// tell "did nothing" from "did no graph work" by TotalToolCalls.
	if len(graphRecords) == 0 {
		s.logger.Debug("no graph tool calls for job", "job_id", jobID, "total_tool_calls", total)
		return &models.Reconstruction{
			JobID:     jobID,
			TimeRange: nil,
			Summary:   models.Summary{TotalToolCalls: total},
			Snapshots: []models.Snapshot{},
			Deltas:    []models.Delta{},
		}, nil
	}

	cacheKey := fmt.Sprintf("reconstruction:%s:%d", jobID, total)
	if cached, ok := s.fromCache(ctx, cacheKey); ok {
		return cached, nil
	}

	deltas := make([]models.Delta, 0, len(graphRecords))
	for i, rec := range graphRecords {
		deltas = append(deltas, models.Delta{
			Timestamp:     rec.Timestamp,
			ToolCallIndex: i,
			CypherQuery:   rec.RawQuery,
			ToolCallID:    rec.ID,
			StepNumber:    rec.StepNumber,
			Changes:       ParseStatement(rec.RawQuery),
		})
	}

	snapshots, _ := BuildStates(deltas)

	result := &models.Reconstruction{
		JobID: jobID,
		TimeRange: &models.TimeRange{
			Start: graphRecords[0].Timestamp,
			End:   graphRecords[len(graphRecords)-1].Timestamp,
		},
		Summary:   Summarize(total, deltas),
		Snapshots: snapshots,
		Deltas:    deltas,
	}

	s.toCache(ctx, cacheKey, result)

	s.logger.Info("reconstruction complete",
		"job_id", jobID,
		"graph_tool_calls", len(deltas),
		"snapshots", len(snapshots))
	return result, nil
}

// fromCache returns a previously computed payload. Cache failures only
// cost a recompute; they are logged and never surfaced.
func (s *Service) fromCache(ctx context.Context, key string) (*models.Reconstruction, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	var result models.Reconstruction
	if err := json.Unmarshal(raw, &result); err != nil {
		s.logger.Warn("cached payload corrupt", "key", key, "error", err)
		return nil, false
	}
	return &result, true
}

func (s *Service) toCache(ctx context.Context, key string, result *models.Reconstruction) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("marshal for cache failed", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
}
