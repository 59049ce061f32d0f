package lifecycle

import (
	"context"
	"errors"
	"strconv"

	"verza/internal/activity"
	"verza/internal/job"
	"verza/pkg/domain"
	domerrors "verza/pkg/domain-errors"
	"verza/pkg/platform/sentinel"
)

// StartReview moves a claimed job to in_review. Checklist edits are allowed
// in both states; this transition exists so requesters can see work has
// actually begun.
func (s *Service) StartReview(ctx context.Context, jobID domain.JobID, verifierID domain.VerifierID) (*job.VerificationJob, error) {
	ctx, span := s.startSpan(ctx, "lifecycle.StartReview", jobID)
	defer span.End()
	start := s.clk.Now()

	updated, err := s.mutateJob(ctx, jobID,
		func(j *job.VerificationJob) error { return s.liveClaimGuard(j, j.CanStartReview(verifierID)) },
		func(j *job.VerificationJob) error {
			j.ApplyStartReview(s.clk.Now())
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	s.record(ctx, updated, activity.EventReviewStarted, job.StatusClaimed, verifierID.String(), nil)
	s.metrics.ObserveTransition(string(activity.EventReviewStarted), string(updated.Status), s.clk.Now().Sub(start))
	return updated, nil
}

// UpdateChecklistItem flips one checklist item for the current claimant.
func (s *Service) UpdateChecklistItem(ctx context.Context, jobID domain.JobID, verifierID domain.VerifierID, itemID string, satisfied bool) (*job.VerificationJob, error) {
	ctx, span := s.startSpan(ctx, "lifecycle.UpdateChecklistItem", jobID)
	defer span.End()

	var from job.Status
	updated, err := s.mutateJob(ctx, jobID,
		func(j *job.VerificationJob) error {
			from = j.Status
			return s.liveClaimGuard(j, j.CanUpdateChecklist(verifierID))
		},
		func(j *job.VerificationJob) error {
			return j.SetChecklistItem(itemID, satisfied, s.clk.Now())
		},
	)
	if err != nil {
		return nil, err
	}

	s.record(ctx, updated, activity.EventChecklistUpdate, from, verifierID.String(), map[string]string{
		"item_id":   itemID,
		"satisfied": strconv.FormatBool(satisfied),
	})
	return updated, nil
}

// Decide records the verifier's outcome and settles escrow. Approval requires
// every checklist item satisfied; rejection requires a reason. The ledger op
// runs before the status write and is idempotent on its op key, so a CAS
// retry re-running the prepare step cannot double-pay.
func (s *Service) Decide(ctx context.Context, jobID domain.JobID, verifierID domain.VerifierID, outcome job.Outcome, notes string) (*job.VerificationJob, error) {
	ctx, span := s.startSpan(ctx, "lifecycle.Decide", jobID)
	defer span.End()
	start := s.clk.Now()

	if outcome != job.OutcomeApproved && outcome != job.OutcomeRejected {
		return nil, domerrors.Newf(domerrors.CodeInvalidInput, "unknown outcome %q", outcome)
	}

	updated, err := s.mutateJob(ctx, jobID,
		func(j *job.VerificationJob) error {
			if err := s.liveClaimGuard(j, j.CanDecide(verifierID)); err != nil {
				return err
			}
			if outcome == job.OutcomeApproved {
				if err := s.gate.ApproveGate(j.Checklist); err != nil {
					return err
				}
				return s.settle(ctx, j, "release")
			}
			if err := s.gate.RejectGate(notes); err != nil {
				return err
			}
			return s.settle(ctx, j, "refund")
		},
		func(j *job.VerificationJob) error {
			j.ApplyDecision(outcome, notes, verifierID, s.clk.Now())
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	s.record(ctx, updated, activity.EventDecided, job.StatusInReview, verifierID.String(), map[string]string{
		"outcome": string(outcome),
	})
	s.metrics.ObserveTransition(string(activity.EventDecided), string(updated.Status), s.clk.Now().Sub(start))
	s.logger.InfoContext(ctx, "job decided",
		"job_id", updated.ID,
		"outcome", outcome,
		"verifier_id", verifierID,
	)
	return updated, nil
}

// settle applies the terminal ledger op for a decision. Op keys are derived
// from the job ID so retries of the same decision are no-ops at the ledger.
func (s *Service) settle(ctx context.Context, j *job.VerificationJob, op string) error {
	opKey := j.ID.String() + ":" + op
	var err error
	switch op {
	case "release":
		err = s.ledger.Release(ctx, j.EscrowRef, opKey)
	case "refund":
		err = s.ledger.Refund(ctx, j.EscrowRef, opKey)
	}
	if err != nil {
		s.metrics.ObserveEscrowOp(op, "error")
		if errors.Is(err, sentinel.ErrAlreadyFinalized) {
			return domerrors.New(domerrors.CodePrecondition, "escrow already settled for this job")
		}
		return domerrors.Wrap(err, domerrors.CodeAdapter, "escrow settlement failed")
	}
	s.metrics.ObserveEscrowOp(op, "ok")
	return nil
}

// liveClaimGuard layers lease expiry on top of a model guard: an expired
// claim is treated as no claim at all, even before the sweep has run.
func (s *Service) liveClaimGuard(j *job.VerificationJob, guardErr error) error {
	if guardErr != nil {
		return guardErr
	}
	if j.ClaimExpired(s.clk.Now()) {
		return domerrors.New(domerrors.CodePrecondition, "claim lease has expired")
	}
	return nil
}
