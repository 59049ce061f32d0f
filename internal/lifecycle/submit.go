package lifecycle

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"verza/internal/activity"
	"verza/internal/checklist"
	"verza/internal/document"
	"verza/internal/job"
	"verza/pkg/domain"
	domerrors "verza/pkg/domain-errors"
)

// Base fees in cents, fixed at submission. The platform fee is applied by the
// ledger at payout.
var baseFees = map[domain.CredentialType]int64{
	domain.CredentialIdentity:   1500,
	domain.CredentialEducation:  2500,
	domain.CredentialEmployment: 2000,
	domain.CredentialFinancial:  3000,
	domain.CredentialOther:      1800,
}

const platformFeeBps = 1000

// SubmitRequest carries a validated submission.
type SubmitRequest struct {
	RequesterID    domain.RequesterID
	DocumentRef    string
	CredentialType domain.CredentialType
	Expedited      bool
}

// Submit holds escrow for the quoted price, creates the job with its
// checklist template and SLA deadline, and surfaces it on the queue. The job
// record only comes into existence once the escrow hold is confirmed.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*job.VerificationJob, error) {
	ctx, span := s.startSpan(ctx, "lifecycle.Submit", domain.JobID{})
	defer span.End()
	start := s.clk.Now()

	quote := job.PriceQuote{BaseFee: baseFees[req.CredentialType], PlatformFeeBps: platformFeeBps}
	slaWindow := s.cfg.SLAWindow
	if req.Expedited {
		quote.ExpeditedSurcharge = quote.BaseFee / 2
		slaWindow = slaWindow / 2
	}

	jobID := domain.NewJobID()
	newJob := &job.VerificationJob{
		ID:             jobID,
		RequesterID:    req.RequesterID,
		DocumentRef:    document.Ref(req.DocumentRef),
		CredentialType: req.CredentialType,
		Status:         job.StatusSubmitted,
		Checklist:      checklist.TemplateFor(req.CredentialType),
		PriceQuote:     quote,
		SLADeadline:    start.Add(slaWindow),
		CreatedAt:      start,
		UpdatedAt:      start,
	}

	// Document existence and escrow hold are independent collaborator calls;
	// fan out and fail the submission on the first error.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := s.docs.Get(gctx, newJob.DocumentRef); err != nil {
			return domerrors.New(domerrors.CodeInvalidInput, "document ref does not resolve")
		}
		return nil
	})
	g.Go(func() error {
		ref, err := s.ledger.Hold(gctx, jobID, quote.Total())
		if err != nil {
			s.metrics.ObserveEscrowOp("hold", "error")
			return domerrors.Wrap(err, domerrors.CodeAdapter, "escrow hold failed")
		}
		s.metrics.ObserveEscrowOp("hold", "ok")
		newJob.EscrowRef = ref
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.jobs.Create(ctx, newJob); err != nil {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to create job")
	}

	s.record(ctx, newJob, activity.EventSubmitted, "", req.RequesterID.String(), map[string]string{
		"credential_type": string(req.CredentialType),
		"amount_held":     strconv.FormatInt(quote.Total(), 10),
	})
	if err := s.enqueuer.Enqueue(ctx, newJob.CredentialType, newJob.ID, newJob.CreatedAt, newJob.SLADeadline); err != nil {
		// The job is durable and submitted; queue rebuild on restart will
		// pick it up. Log and keep going.
		s.logger.ErrorContext(ctx, "enqueue after submit failed",
			"job_id", newJob.ID,
			"error", err,
		)
	}

	s.metrics.ObserveTransition(string(activity.EventSubmitted), string(newJob.Status), s.clk.Now().Sub(start))
	s.logger.InfoContext(ctx, "job submitted",
		"job_id", newJob.ID,
		"credential_type", newJob.CredentialType,
		"expedited", req.Expedited,
		"amount_held", quote.Total(),
	)
	return newJob, nil
}
