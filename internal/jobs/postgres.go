package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	apperrors "github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/errors"
	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/models"
)

// PostgresStore implements job tracking on PostgreSQL (deployed mode).
type PostgresStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPostgresStore connects to the job-tracking database.
func NewPostgresStore(dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, apperrors.DatabaseError(err, "connect to postgres")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &PostgresStore{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		return nil, apperrors.DatabaseError(err, "init schema")
	}
	return store, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create jobs table: %w", err)
	}
	return nil
}

// CreateJob inserts a job row, assigning an id when none is set.
func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, status, description, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5)`,
		job.ID, job.Status, job.Description, job.CreatedAt, job.CompletedAt)
	if err != nil {
		return apperrors.DatabaseError(err, "insert job")
	}

	s.logger.WithField("job_id", job.ID).Debug("Job created")
	return nil
}

// GetJob fetches one job by id.
func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	err := s.db.GetContext(ctx, &job,
		`SELECT id, status, description, created_at, completed_at FROM jobs WHERE id = $1`, jobID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperrors.DatabaseError(err, "get job "+jobID)
	}
	return &job, nil
}

// ListJobs returns the most recent jobs, newest first.
func (s *PostgresStore) ListJobs(ctx context.Context, limit int) ([]*models.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobList []*models.Job
	err := s.db.SelectContext(ctx, &jobList,
		`SELECT id, status, description, created_at, completed_at
		 FROM jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, apperrors.DatabaseError(err, "list jobs")
	}
	return jobList, nil
}

// UpdateJobStatus transitions a job, stamping completed_at for terminal states.
func (s *PostgresStore) UpdateJobStatus(ctx context.Context, jobID, status string) error {
	var completedAt *time.Time
	if status == models.JobStatusCompleted || status == models.JobStatusFailed {
		now := time.Now().UTC()
		completedAt = &now
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = $1, completed_at = $2 WHERE id = $3`,
		status, completedAt, jobID)
	if err != nil {
		return apperrors.DatabaseError(err, "update job "+jobID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	s.logger.WithFields(logrus.Fields{"job_id": jobID, "status": status}).Debug("Job status updated")
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
