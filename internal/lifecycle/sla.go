package lifecycle

import (
	"context"
	"errors"

	"verza/internal/activity"
	"verza/internal/job"
	"verza/pkg/domain"
)

// MarkSLABreached flags a job whose deadline elapsed without a decision. The
// flag is sticky and does not change the job's status; the sweep calls this
// once per job because the store stops listing flagged jobs.
func (s *Service) MarkSLABreached(ctx context.Context, jobID domain.JobID) (*job.VerificationJob, error) {
	ctx, span := s.startSpan(ctx, "lifecycle.MarkSLABreached", jobID)
	defer span.End()

	var from job.Status
	updated, err := s.mutateJob(ctx, jobID,
		func(j *job.VerificationJob) error {
			from = j.Status
			if j.SLABreached {
				return errAlreadyFlagged
			}
			if j.Status.IsTerminal() || j.Status == job.StatusDisputed {
				return errAlreadyFlagged
			}
			if j.SLADeadline.After(s.clk.Now()) {
				return errAlreadyFlagged
			}
			return nil
		},
		func(j *job.VerificationJob) error {
			j.SLABreached = true
			j.UpdatedAt = s.clk.Now()
			return nil
		},
	)
	if errors.Is(err, errAlreadyFlagged) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.record(ctx, updated, activity.EventSLABreached, from, "system", nil)
	return updated, nil
}

var errAlreadyFlagged = errors.New("already flagged")
