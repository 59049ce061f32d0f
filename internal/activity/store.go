package activity

import (
	"context"

	"verza/pkg/domain"
)

// Store persists activity entries. Append-only; there is no update or delete.
type Store interface {
	Append(ctx context.Context, entry Entry) (Entry, error)
	// ListByJob returns entries for one job with Seq > afterSeq, oldest
	// first, at most limit entries. Callers resume replay by passing the
	// last Seq they saw.
	ListByJob(ctx context.Context, jobID domain.JobID, afterSeq int64, limit int) ([]Entry, error)
}
