// Package lifecycle is the authoritative job state machine. Every status
// mutation in the system goes through this service; other components call in
// rather than writing status themselves.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"verza/internal/activity"
	"verza/internal/checklist"
	"verza/internal/clock"
	"verza/internal/document"
	"verza/internal/escrow"
	"verza/internal/job"
	"verza/internal/lifecycle/metrics"
	"verza/pkg/domain"
	domerrors "verza/pkg/domain-errors"
	"verza/pkg/platform/sentinel"
)

// Enqueuer re-surfaces a submitted job on its credential-type queue. orderAt
// determines queue position: submission time for fresh jobs, the release
// moment for give-backs (tail), the original submission time for re-verifies.
type Enqueuer interface {
	Enqueue(ctx context.Context, credType domain.CredentialType, jobID domain.JobID, orderAt, slaDeadline time.Time) error
}

// Config carries the tunables the state machine needs.
type Config struct {
	ClaimTTL      time.Duration
	SLAWindow     time.Duration
	DisputeWindow time.Duration
	CASMaxRetries int
}

// Service drives all lifecycle transitions.
type Service struct {
	jobs     job.Store
	ledger   escrow.Ledger
	docs     document.Store
	gate     *checklist.Engine
	recorder *activity.Recorder
	enqueuer Enqueuer
	clk      clock.Clock
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func NewService(
	jobs job.Store,
	ledger escrow.Ledger,
	docs document.Store,
	recorder *activity.Recorder,
	enqueuer Enqueuer,
	clk clock.Clock,
	cfg Config,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	if cfg.CASMaxRetries <= 0 {
		cfg.CASMaxRetries = 3
	}
	return &Service{
		jobs:     jobs,
		ledger:   ledger,
		docs:     docs,
		gate:     checklist.NewEngine(),
		recorder: recorder,
		enqueuer: enqueuer,
		clk:      clk,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		tracer:   otel.Tracer("verza/lifecycle"),
	}
}

// GetJob returns the current job record. Requesters see their own jobs,
// verifiers the jobs assigned to them, admins everything.
func (s *Service) GetJob(ctx context.Context, id domain.JobID, actor Actor) (*job.VerificationJob, error) {
	j, err := s.getJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := actor.mayView(j); err != nil {
		return nil, err
	}
	return j, nil
}

// Actor is the caller identity lifecycle operations authorize against.
type Actor struct {
	ID   string
	Role domain.Role
}

func (a Actor) mayView(j *job.VerificationJob) error {
	switch a.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleRequester:
		if j.RequesterID.String() == a.ID {
			return nil
		}
	case domain.RoleVerifier:
		if j.AssignedVerifierID != nil && j.AssignedVerifierID.String() == a.ID {
			return nil
		}
		if j.Claim != nil && j.Claim.VerifierID.String() == a.ID {
			return nil
		}
	}
	return domerrors.New(domerrors.CodeForbidden, "not a party to this job")
}

// MayView re-exposes the visibility check for the activity handler.
func (a Actor) MayView(j *job.VerificationJob) error { return a.mayView(j) }

func (s *Service) getJob(ctx context.Context, id domain.JobID) (*job.VerificationJob, error) {
	j, err := s.jobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domerrors.New(domerrors.CodeNotFound, "job not found")
		}
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to load job")
	}
	return j, nil
}

// mutateJob runs the read-validate-swap loop. prepare sees the freshly read
// job and performs guard checks and escrow calls; mutate applies the change
// inside the store's atomic section, pinned to the validated version. A
// stale version is retried with fresh state up to CASMaxRetries before
// surfacing CodeConcurrency.
func (s *Service) mutateJob(
	ctx context.Context,
	id domain.JobID,
	prepare func(j *job.VerificationJob) error,
	mutate job.Mutator,
) (*job.VerificationJob, error) {
	for attempt := 0; attempt <= s.cfg.CASMaxRetries; attempt++ {
		current, err := s.getJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := prepare(current); err != nil {
			return nil, err
		}
		updated, err := s.jobs.CompareAndSwap(ctx, id, current.Version, mutate)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, sentinel.ErrVersionMismatch) {
			s.metrics.ObserveCASConflict()
			continue
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domerrors.New(domerrors.CodeNotFound, "job not found")
		}
		var coded *domerrors.Error
		if errors.As(err, &coded) {
			return nil, err
		}
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "failed to write job")
	}
	return nil, domerrors.New(domerrors.CodeConcurrency, "job was modified concurrently, refresh and retry")
}

func (s *Service) record(ctx context.Context, j *job.VerificationJob, event activity.Event, from job.Status, actor string, metadata map[string]string) {
	entry := activity.Entry{
		JobID:     j.ID,
		Event:     event,
		From:      string(from),
		To:        string(j.Status),
		Actor:     actor,
		Timestamp: s.clk.Now(),
		Metadata:  metadata,
	}
	if _, err := s.recorder.Record(ctx, entry); err != nil {
		// The transition already committed; a lost log entry is an
		// operational incident, not a caller error.
		s.logger.ErrorContext(ctx, "activity append failed",
			"job_id", j.ID,
			"event", event,
			"error", err,
		)
	}
}

func (s *Service) startSpan(ctx context.Context, op string, id domain.JobID) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, op)
	span.SetAttributes(attribute.String("job.id", id.String()))
	return ctx, span
}
