package dispute

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"verza/internal/clock"
	"verza/internal/lifecycle"
	"verza/pkg/domain"
	domerrors "verza/pkg/domain-errors"
	"verza/pkg/platform/sentinel"
)

// Service coordinates the dispute record with the job-side transition. The
// lifecycle call goes first: its compare-and-swap on the job is what enforces
// at most one live dispute per job and the filing window, so a lost race
// never leaves an orphan dispute row. A resolved dispute does not block a new
// filing: if the re-decided job is disputed again within its window, a fresh
// record is created alongside the resolved one.
type Service struct {
	store  Store
	lc     *lifecycle.Service
	clk    clock.Clock
	logger *slog.Logger
}

func NewService(store Store, lc *lifecycle.Service, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{store: store, lc: lc, clk: clk, logger: logger}
}

// File opens a dispute against a decided job.
func (s *Service) File(ctx context.Context, jobID domain.JobID, actor lifecycle.Actor, reason string) (*Dispute, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, domerrors.New(domerrors.CodeInvalidInput, "a dispute requires a reason")
	}

	if existing, err := s.store.GetByJob(ctx, jobID); err == nil && existing != nil && existing.Status != StatusResolved {
		return nil, domerrors.New(domerrors.CodeConflict, "job already has an unresolved dispute")
	} else if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to check existing disputes")
	}

	disputeID := domain.NewDisputeID()
	if _, err := s.lc.OpenDispute(ctx, jobID, disputeID, actor); err != nil {
		return nil, err
	}

	now := s.clk.Now()
	d := &Dispute{
		ID:          disputeID,
		JobID:       jobID,
		FiledBy:     actor.ID,
		FiledByRole: actor.Role,
		Reason:      reason,
		Status:      StatusOpen,
		FiledAt:     now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, d); err != nil {
		// The job is already marked disputed; surface loudly so an operator
		// can reconcile.
		s.logger.ErrorContext(ctx, "dispute record write failed after job transition",
			"job_id", jobID,
			"dispute_id", disputeID,
			"error", err,
		)
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to persist dispute")
	}

	s.logger.InfoContext(ctx, "dispute filed",
		"job_id", jobID,
		"dispute_id", disputeID,
		"filed_by", actor.ID,
	)
	return d, nil
}

// Get returns a dispute visible to the caller: the filer, a party to the
// underlying job, or an admin.
func (s *Service) Get(ctx context.Context, id domain.DisputeID, actor lifecycle.Actor) (*Dispute, error) {
	d, err := s.getDispute(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleAdmin || actor.ID == d.FiledBy {
		return d, nil
	}
	if _, err := s.lc.GetJob(ctx, d.JobID, actor); err != nil {
		return nil, err
	}
	return d, nil
}

// MarkUnderReview moves an open dispute into active admin review.
func (s *Service) MarkUnderReview(ctx context.Context, id domain.DisputeID, actor lifecycle.Actor) (*Dispute, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, domerrors.New(domerrors.CodeForbidden, "only admins review disputes")
	}
	d, err := s.getDispute(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusOpen {
		return nil, domerrors.Newf(domerrors.CodeConflict, "dispute is %s", d.Status)
	}
	d.Status = StatusUnderReview
	d.UpdatedAt = s.clk.Now()
	if err := s.store.Update(ctx, d); err != nil {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to update dispute")
	}
	return d, nil
}

// Resolve applies an admin ruling. The job-side settlement runs first and is
// idempotent on the dispute ID, so a crash between the two writes heals on
// retry.
func (s *Service) Resolve(ctx context.Context, id domain.DisputeID, actor lifecycle.Actor, res lifecycle.Resolution, notes string) (*Dispute, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, domerrors.New(domerrors.CodeForbidden, "only admins resolve disputes")
	}
	d, err := s.getDispute(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status == StatusResolved {
		return nil, domerrors.New(domerrors.CodeConflict, "dispute already resolved")
	}

	if _, err := s.lc.ApplyResolution(ctx, d.JobID, d.ID, res, actor.ID); err != nil {
		return nil, err
	}

	now := s.clk.Now()
	d.Status = StatusResolved
	d.Resolution = &Resolution{
		Kind:             res.Kind,
		AmountToVerifier: res.AmountToVerifier,
		Notes:            notes,
		ResolvedBy:       actor.ID,
		ResolvedAt:       now,
	}
	d.UpdatedAt = now
	if err := s.store.Update(ctx, d); err != nil {
		s.logger.ErrorContext(ctx, "dispute record update failed after resolution",
			"dispute_id", d.ID,
			"error", err,
		)
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to update dispute")
	}
	return d, nil
}

// ListOpen returns unresolved disputes for the admin queue.
func (s *Service) ListOpen(ctx context.Context, actor lifecycle.Actor) ([]*Dispute, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, domerrors.New(domerrors.CodeForbidden, "only admins list disputes")
	}
	open, err := s.store.ListOpen(ctx)
	if err != nil {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to list disputes")
	}
	return open, nil
}

func (s *Service) getDispute(ctx context.Context, id domain.DisputeID) (*Dispute, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domerrors.New(domerrors.CodeNotFound, "dispute not found")
		}
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to load dispute")
	}
	return d, nil
}
