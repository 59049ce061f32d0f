package job

import (
	"context"
	"time"

	"verza/pkg/domain"
)

// Mutator applies a change to a job inside a compare-and-swap. It must not
// touch Version; the store owns version bookkeeping.
type Mutator func(j *VerificationJob) error

// Store is the durable table of VerificationJob records.
//
// All mutation in the system funnels through CompareAndSwap; no component
// holds a record across a blocking boundary and writes it back without
// re-validating the version. A stale expectedVersion fails with
// sentinel.ErrVersionMismatch and is never silently overwritten.
type Store interface {
	Create(ctx context.Context, j *VerificationJob) error
	Get(ctx context.Context, id domain.JobID) (*VerificationJob, error)
	// CompareAndSwap re-reads the job, verifies Version == expectedVersion,
	// applies mutate, bumps the version, and persists, all atomically.
	CompareAndSwap(ctx context.Context, id domain.JobID, expectedVersion int64, mutate Mutator) (*VerificationJob, error)
	// ListSubmitted returns submitted jobs of one credential type, oldest
	// first, ties broken by SLA deadline ascending. Used to rebuild queue
	// indexes on startup.
	ListSubmitted(ctx context.Context, credType domain.CredentialType) ([]*VerificationJob, error)
	// ListExpiredClaims returns jobs whose claim lease elapsed before now.
	ListExpiredClaims(ctx context.Context, now time.Time) ([]*VerificationJob, error)
	// ListSLABreaches returns non-terminal jobs past their SLA deadline that
	// have not yet been flagged.
	ListSLABreaches(ctx context.Context, now time.Time) ([]*VerificationJob, error)
}
