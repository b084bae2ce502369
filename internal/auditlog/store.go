// Package auditlog is the client side of the audit-trail collaborator:
// an append-only store of timestamped agent steps, queried by job id.
// This service only ever reads from it.
package auditlog

import (
	"context"
	"errors"

	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/models"
)

// ErrUnavailable marks the audit log as unreachable. Callers must surface
// it as a service-level condition, distinct from "job has no data".
var ErrUnavailable = errors.New("audit log unavailable")

// Store is the collaborator contract: tool-call steps for a job in
// ascending step order, plus the total tool-call count independent of
// which tool was called.
type Store interface {
	// ListToolCalls returns every tool-call step for the job, ascending
	// by step number.
	ListToolCalls(ctx context.Context, jobID string) ([]models.AuditRecord, error)

	// CountToolCalls returns the total number of tool-call steps for the
	// job, regardless of tool.
	CountToolCalls(ctx context.Context, jobID string) (int, error)
}
