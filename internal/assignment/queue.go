// Package assignment matches waiting jobs to verifiers. It owns the
// per-credential-type queues and the background sweep; the actual status
// writes happen in the lifecycle service.
package assignment

import (
	"context"
	"time"

	"verza/pkg/domain"
)

// QueueIndex is the ordered set of submitted jobs per credential type. It is
// an index, not the source of truth: the job store decides whether a popped
// entry is still claimable, so a stale entry costs one wasted pop and nothing
// else.
//
// Ordering is orderAt ascending with ties broken by SLA deadline ascending.
// Callers encode queue position through orderAt: submission time for fresh
// jobs, release time for give-backs, original submission time for re-verifies.
type QueueIndex interface {
	Enqueue(ctx context.Context, credType domain.CredentialType, jobID domain.JobID, orderAt, slaDeadline time.Time) error
	// PopHead removes and returns the head entry. ok is false on an empty
	// queue.
	PopHead(ctx context.Context, credType domain.CredentialType) (jobID domain.JobID, ok bool, err error)
	Depth(ctx context.Context, credType domain.CredentialType) (int64, error)
}
