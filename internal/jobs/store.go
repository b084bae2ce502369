// Package jobs is the relational job-tracking store. It holds one row per
// pipeline job so the API can distinguish an unknown job from a job that
// simply produced no graph work.
package jobs

import (
	"context"
	"errors"

	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/models"
)

// ErrNotFound is returned when a job id is unknown.
var ErrNotFound = errors.New("job not found")

// Store defines the job-tracking interface.
type Store interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	ListJobs(ctx context.Context, limit int) ([]*models.Job, error)
	UpdateJobStatus(ctx context.Context, jobID, status string) error
	Close() error
}
