package lifecycle

import (
	"context"
	"errors"

	"verza/internal/activity"
	"verza/internal/job"
	"verza/pkg/domain"
	domerrors "verza/pkg/domain-errors"
	"verza/pkg/platform/sentinel"
)

// OpenDispute moves a terminal job into the disputed overlay and freezes its
// escrow, reopening the settlement epoch so the eventual ruling can apply a
// new terminal ledger op. The dispute record itself belongs to the dispute
// service; this method only handles the job-side transition.
func (s *Service) OpenDispute(ctx context.Context, jobID domain.JobID, disputeID domain.DisputeID, actor Actor) (*job.VerificationJob, error) {
	ctx, span := s.startSpan(ctx, "lifecycle.OpenDispute", jobID)
	defer span.End()
	start := s.clk.Now()

	var from job.Status
	updated, err := s.mutateJob(ctx, jobID,
		func(j *job.VerificationJob) error {
			from = j.Status
			if err := s.canDispute(j, actor); err != nil {
				return err
			}
			if err := s.ledger.Freeze(ctx, j.EscrowRef); err != nil {
				s.metrics.ObserveEscrowOp("freeze", "error")
				return domerrors.Wrap(err, domerrors.CodeAdapter, "escrow freeze failed")
			}
			s.metrics.ObserveEscrowOp("freeze", "ok")
			return nil
		},
		func(j *job.VerificationJob) error {
			j.ApplyDisputeOpened(disputeID, s.clk.Now())
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	s.record(ctx, updated, activity.EventDisputeFiled, from, actor.ID, map[string]string{
		"dispute_id": disputeID.String(),
	})
	s.metrics.ObserveTransition(string(activity.EventDisputeFiled), string(updated.Status), s.clk.Now().Sub(start))
	return updated, nil
}

func (s *Service) canDispute(j *job.VerificationJob, actor Actor) error {
	if !j.Status.IsTerminal() {
		return domerrors.Newf(domerrors.CodePrecondition, "job is %s, only decided jobs can be disputed", j.Status)
	}
	if j.DisputeRef != nil {
		return domerrors.New(domerrors.CodeConflict, "job already has an open dispute")
	}
	if j.Decision == nil {
		return domerrors.New(domerrors.CodeInternal, "terminal job has no decision on record")
	}
	if s.clk.Now().After(j.Decision.DecidedAt.Add(s.cfg.DisputeWindow)) {
		return domerrors.New(domerrors.CodePrecondition, "dispute window has closed")
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleRequester:
		if j.RequesterID.String() == actor.ID {
			return nil
		}
	case domain.RoleVerifier:
		if j.Decision.DecidedBy.String() == actor.ID {
			return nil
		}
	}
	return domerrors.New(domerrors.CodeForbidden, "only a party to the job may dispute it")
}

// Resolution is an admin ruling applied to a disputed job.
type Resolution struct {
	Kind domain.ResolutionKind
	// AmountToVerifier is the verifier's share for a partial refund, in
	// cents. Ignored for the other kinds.
	AmountToVerifier int64
}

// ApplyResolution settles a disputed job per the admin ruling. Monetary
// rulings run their ledger op before the status write, keyed by dispute ID so
// retries stay idempotent; a reverify ruling leaves escrow frozen and sends
// the job back through the queue at its original position.
func (s *Service) ApplyResolution(ctx context.Context, jobID domain.JobID, disputeID domain.DisputeID, res Resolution, adminID string) (*job.VerificationJob, error) {
	ctx, span := s.startSpan(ctx, "lifecycle.ApplyResolution", jobID)
	defer span.End()
	start := s.clk.Now()

	updated, err := s.mutateJob(ctx, jobID,
		func(j *job.VerificationJob) error {
			if j.Status != job.StatusDisputed {
				return domerrors.Newf(domerrors.CodePrecondition, "job is %s, not disputed", j.Status)
			}
			if j.DisputeRef == nil || *j.DisputeRef != disputeID {
				return domerrors.New(domerrors.CodeConflict, "resolution does not match the open dispute")
			}
			return s.settleResolution(ctx, j, disputeID, res)
		},
		func(j *job.VerificationJob) error {
			now := s.clk.Now()
			switch res.Kind {
			case domain.ResolutionFullRefund:
				j.ApplyResolutionOutcome(job.StatusRejected, now)
			case domain.ResolutionFullPayment, domain.ResolutionPartialRefund:
				j.ApplyResolutionOutcome(job.StatusCompleted, now)
			case domain.ResolutionReverify:
				j.ApplyReverify(now)
			}
			j.DisputeRef = nil
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	s.record(ctx, updated, activity.EventDisputeResolved, job.StatusDisputed, adminID, map[string]string{
		"dispute_id": disputeID.String(),
		"resolution": string(res.Kind),
	})
	if res.Kind == domain.ResolutionReverify {
		// Original submission time puts the job back at the head region of
		// the queue rather than behind fresh arrivals.
		if err := s.enqueuer.Enqueue(ctx, updated.CredentialType, updated.ID, updated.CreatedAt, updated.SLADeadline); err != nil {
			s.logger.ErrorContext(ctx, "re-enqueue after reverify failed",
				"job_id", updated.ID,
				"error", err,
			)
		}
	}
	s.metrics.ObserveTransition(string(activity.EventDisputeResolved), string(updated.Status), s.clk.Now().Sub(start))
	s.logger.InfoContext(ctx, "dispute resolved",
		"job_id", updated.ID,
		"dispute_id", disputeID,
		"resolution", res.Kind,
	)
	return updated, nil
}

func (s *Service) settleResolution(ctx context.Context, j *job.VerificationJob, disputeID domain.DisputeID, res Resolution) error {
	opKey := j.ID.String() + ":dispute:" + disputeID.String()
	var (
		op  string
		err error
	)
	switch res.Kind {
	case domain.ResolutionFullRefund:
		op = "refund"
		err = s.ledger.Refund(ctx, j.EscrowRef, opKey)
	case domain.ResolutionFullPayment:
		op = "release"
		err = s.ledger.Release(ctx, j.EscrowRef, opKey)
	case domain.ResolutionPartialRefund:
		op = "split"
		if res.AmountToVerifier <= 0 || res.AmountToVerifier >= j.PriceQuote.Total() {
			return domerrors.New(domerrors.CodeInvalidInput, "partial refund split must be between zero and the held amount")
		}
		err = s.ledger.Split(ctx, j.EscrowRef, res.AmountToVerifier, opKey)
	case domain.ResolutionReverify:
		return nil
	default:
		return domerrors.Newf(domerrors.CodeInvalidInput, "unknown resolution kind %q", res.Kind)
	}
	if err != nil {
		s.metrics.ObserveEscrowOp(op, "error")
		if errors.Is(err, sentinel.ErrAlreadyFinalized) {
			return domerrors.New(domerrors.CodePrecondition, "escrow already settled for this dispute")
		}
		return domerrors.Wrap(err, domerrors.CodeAdapter, "escrow settlement failed")
	}
	s.metrics.ObserveEscrowOp(op, "ok")
	return nil
}
