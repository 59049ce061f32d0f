package dispute

import (
	"context"

	"verza/pkg/domain"
)

// Store persists dispute records.
type Store interface {
	Create(ctx context.Context, d *Dispute) error
	Get(ctx context.Context, id domain.DisputeID) (*Dispute, error)
	// GetByJob returns the most recently filed dispute for a job,
	// sentinel.ErrNotFound if none. Earlier resolved disputes stay on
	// record but are only reachable by ID.
	GetByJob(ctx context.Context, jobID domain.JobID) (*Dispute, error)
	Update(ctx context.Context, d *Dispute) error
	// ListOpen returns unresolved disputes, oldest first.
	ListOpen(ctx context.Context) ([]*Dispute, error)
}
