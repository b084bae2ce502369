package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	apperrors "github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/errors"
	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/models"
)

// SQLiteStore implements job tracking on SQLite (local/development mode).
type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLiteStore creates a SQLite-backed job store at path.
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, apperrors.DatabaseError(err, "connect to sqlite")
	}

	// Enable foreign keys and WAL mode for better concurrency
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		return nil, apperrors.DatabaseError(err, "init schema")
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		description TEXT,
		created_at DATETIME NOT NULL,
		completed_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create jobs table: %w", err)
	}
	return nil
}

// CreateJob inserts a job row, assigning an id when none is set.
func (s *SQLiteStore) CreateJob(ctx context.Context, job *models.Job) error {
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
		VALUES (?, ?, ?, ?, ?)`,
		job.ID, job.Status, job.Description, job.CreatedAt, job.CompletedAt)
	if err != nil {
		return apperrors.DatabaseError(err, "insert job")
	}

	s.logger.WithField("job_id", job.ID).Debug("Job created")
	return nil
}

// GetJob fetches one job by id.
func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	err := s.db.GetContext(ctx, &job,
		`SELECT id, status, description, created_at, completed_at FROM jobs WHERE id = ?`, jobID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperrors.DatabaseError(err, "get job "+jobID)
	}
	return &job, nil
}

// ListJobs returns the most recent jobs, newest first.
func (s *SQLiteStore) ListJobs(ctx context.Context, limit int) ([]*models.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobList []*models.Job
	err := s.db.SelectContext(ctx, &jobList,
		`SELECT id, status, description, created_at, completed_at
		 FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, apperrors.DatabaseError(err, "list jobs")
	}
	return jobList, nil
}

// UpdateJobStatus transitions a job, stamping completed_at for terminal states.
func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, jobID, status string) error {
	var completedAt *time.Time
	if status == models.JobStatusCompleted || status == models.JobStatusFailed {
		now := time.Now().UTC()
		completedAt = &now
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, completed_at = ? WHERE id = ?`,
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
