package auditlog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/models"
)

// PostgresStore reads the agent audit trail from the pipeline's
// agent_steps table. Tool metadata lives in a JSONB column shaped as
// {"name": ..., "arguments": {"query": ...}}; only the name and the
// optional query string are extracted here.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore creates a store from a DSN and verifies connectivity,
// failing fast on startup.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("audit log DSN missing")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit log pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to audit log: %w", err)
	}

	logger := slog.Default().With("component", "auditlog")
	logger.Info("audit log store connected")

	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
	s.logger.Info("audit log store closed")
}

// HealthCheck verifies connectivity. Used by the API health endpoint.
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("audit log health check failed: %w", err)
	}
	return nil
}

// ListToolCalls implements Store. Any transport or query failure is
// reported as ErrUnavailable so the caller can map it to one coarse
// service-unavailable condition.
func (s *PostgresStore) ListToolCalls(ctx context.Context, jobID string) ([]models.AuditRecord, error) {
	query := `
		SELECT id, job_id, timestamp, step_number,
		       COALESCE(tool->>'name', '') AS tool_name,
		       COALESCE(tool->'arguments'->>'query', '') AS raw_query
		FROM agent_steps
		WHERE job_id = $1 AND step_type = 'tool'
		ORDER BY step_number ASC
	`

	rows, err := s.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("%w: list tool calls for job %s: %v", ErrUnavailable, jobID, err)
	}
	defer rows.Close()

	var records []models.AuditRecord
	for rows.Next() {
		var rec models.AuditRecord
		var ts time.Time
		if err := rows.Scan(&rec.ID, &rec.JobID, &ts, &rec.StepNumber, &rec.ToolName, &rec.RawQuery); err != nil {
			return nil, fmt.Errorf("%w: scan tool call: %v", ErrUnavailable, err)
		}
		rec.Timestamp = ts
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read tool calls: %v", ErrUnavailable, err)
	}

	s.logger.Debug("tool calls listed", "job_id", jobID, "count", len(records))
	return records, nil
}

// CountToolCalls implements Store.
func (s *PostgresStore) CountToolCalls(ctx context.Context, jobID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM agent_steps
		WHERE job_id = $1 AND step_type = 'tool'
	`

	var count int
	if err := s.pool.QueryRow(ctx, query, jobID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count tool calls for job %s: %v", ErrUnavailable, jobID, err)
	}
	return count, nil
}
