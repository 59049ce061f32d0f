package lifecycle

import (
	"context"
	"errors"
	"time"

	"verza/internal/activity"
	"verza/internal/job"
	"verza/pkg/domain"
	domerrors "verza/pkg/domain-errors"
)

// Claim attaches a lease for verifierID and moves the job to claimed. Called
// by the assignment manager, which owns queue ordering and claim retries.
func (s *Service) Claim(ctx context.Context, jobID domain.JobID, verifierID domain.VerifierID) (*job.VerificationJob, error) {
	ctx, span := s.startSpan(ctx, "lifecycle.Claim", jobID)
	defer span.End()
	start := s.clk.Now()

	updated, err := s.mutateJob(ctx, jobID,
		func(j *job.VerificationJob) error { return j.CanClaim() },
		func(j *job.VerificationJob) error {
			j.ApplyClaim(verifierID, s.clk.Now(), s.cfg.ClaimTTL)
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	s.record(ctx, updated, activity.EventClaimed, job.StatusSubmitted, verifierID.String(), nil)
	s.metrics.ObserveTransition(string(activity.EventClaimed), string(updated.Status), s.clk.Now().Sub(start))
	return updated, nil
}

// Heartbeat extends the lease by ClaimTTL. Returns false (no error) when the
// job is not currently claimed by verifierID; a crashed-and-recovered
// verifier learns it lost the claim from the false return, not an exception.
func (s *Service) Heartbeat(ctx context.Context, jobID domain.JobID, verifierID domain.VerifierID) (bool, time.Time, error) {
	var expiresAt time.Time
	_, err := s.mutateJob(ctx, jobID,
		func(j *job.VerificationJob) error {
			if err := j.CanRequeue(); err != nil {
				return errNotClaimant
			}
			if !j.IsClaimedBy(verifierID) || j.ClaimExpired(s.clk.Now()) {
				return errNotClaimant
			}
			return nil
		},
		func(j *job.VerificationJob) error {
			j.Claim.ExpiresAt = s.clk.Now().Add(s.cfg.ClaimTTL)
			j.UpdatedAt = s.clk.Now()
			expiresAt = j.Claim.ExpiresAt
			return nil
		},
	)
	if errors.Is(err, errNotClaimant) {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, err
	}
	return true, expiresAt, nil
}

// errNotClaimant is internal to Heartbeat's no-throw contract.
var errNotClaimant = errors.New("not claimant")

func claimantGuard(j *job.VerificationJob, verifierID domain.VerifierID) error {
	if !j.IsClaimedBy(verifierID) {
		return domerrors.New(domerrors.CodeForbidden, "job is claimed by another verifier")
	}
	return nil
}

// Release is the voluntary give-back. The job returns to submitted and is
// re-enqueued at the tail so a verifier cannot game ordering by
// claim-and-release.
func (s *Service) Release(ctx context.Context, jobID domain.JobID, verifierID domain.VerifierID) (*job.VerificationJob, error) {
	ctx, span := s.startSpan(ctx, "lifecycle.Release", jobID)
	defer span.End()
	return s.requeue(ctx, jobID, verifierID.String(), activity.EventClaimReleased, func(j *job.VerificationJob) error {
		if err := j.CanRequeue(); err != nil {
			return err
		}
		return claimantGuard(j, verifierID)
	})
}

// Expire is the involuntary variant performed by the sweep when a lease
// elapses. Same transition, distinct audit event.
func (s *Service) Expire(ctx context.Context, jobID domain.JobID) (*job.VerificationJob, error) {
	ctx, span := s.startSpan(ctx, "lifecycle.Expire", jobID)
	defer span.End()
	return s.requeue(ctx, jobID, "system", activity.EventClaimExpired, func(j *job.VerificationJob) error {
		if err := j.CanRequeue(); err != nil {
			return err
		}
		if !j.ClaimExpired(s.clk.Now()) {
			return errLeaseStillLive
		}
		return nil
	})
}

var errLeaseStillLive = errors.New("lease still live")

// IsLeaseStillLive lets the sweeper distinguish a lease renewed between scan
// and expiry from a real failure.
func IsLeaseStillLive(err error) bool { return errors.Is(err, errLeaseStillLive) }

func (s *Service) requeue(ctx context.Context, jobID domain.JobID, actor string, event activity.Event, guard func(*job.VerificationJob) error) (*job.VerificationJob, error) {
	start := s.clk.Now()
	var from job.Status
	updated, err := s.mutateJob(ctx, jobID,
		func(j *job.VerificationJob) error {
			from = j.Status
			return guard(j)
		},
		func(j *job.VerificationJob) error {
			j.ApplyRequeue(s.clk.Now())
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	s.record(ctx, updated, event, from, actor, nil)
	if err := s.enqueuer.Enqueue(ctx, updated.CredentialType, updated.ID, s.clk.Now(), updated.SLADeadline); err != nil {
		s.logger.ErrorContext(ctx, "re-enqueue after release failed",
			"job_id", updated.ID,
			"error", err,
		)
	}
	s.metrics.ObserveTransition(string(event), string(updated.Status), s.clk.Now().Sub(start))
	return updated, nil
}
