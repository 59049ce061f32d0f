// Package escrow defines the narrow interface to the payment collaborator.
//
// The engine never reads or mutates balances directly; it only instructs the
// ledger through idempotent operations keyed by job-scoped operation keys, so
// retried transitions cannot double-release or double-refund.
package escrow

import (
	"context"

	"verza/pkg/domain"
)

// Ref is the opaque handle returned when funds are held for a job.
type Ref string

// Ledger exposes hold/release/refund/split operations keyed by job id.
//
// Settlement model: Hold opens a settlement epoch. Exactly one terminal
// operation (Release, Refund, or Split) settles an epoch; a retry with the
// same operation key is a no-op, while a different terminal operation in a
// settled epoch fails with sentinel.ErrAlreadyFinalized. Freeze, invoked when
// a dispute is filed inside the payout-hold window, reopens settlement: the
// admin resolution's operation settles the new epoch.
type Ledger interface {
	// Hold escrows amount (in cents) for the job. Idempotent per job.
	Hold(ctx context.Context, jobID domain.JobID, amount int64) (Ref, error)
	// Release moves the held funds to the verifier.
	Release(ctx context.Context, ref Ref, opKey string) error
	// Refund returns the held funds to the requester.
	Refund(ctx context.Context, ref Ref, opKey string) error
	// Split apportions the held funds: amountToVerifier to the verifier,
	// the remainder back to the requester.
	Split(ctx context.Context, ref Ref, amountToVerifier int64, opKey string) error
	// Freeze suspends settlement finality while a dispute is open.
	Freeze(ctx context.Context, ref Ref) error
}
