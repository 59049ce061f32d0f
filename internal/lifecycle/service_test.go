package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"verza/internal/activity"
	"verza/internal/clock"
	"verza/internal/document"
	"verza/internal/escrow"
	"verza/internal/escrow/mocks"
	"verza/internal/job"
	"verza/pkg/domain"
	domerrors "verza/pkg/domain-errors"
)

// recordingEnqueuer captures enqueue calls so tests can assert queue
// positioning without a real index.
type recordingEnqueuer struct {
	mu    sync.Mutex
	calls []enqueueCall
}

type enqueueCall struct {
	credType domain.CredentialType
	jobID    domain.JobID
	orderAt  time.Time
}

func (e *recordingEnqueuer) Enqueue(_ context.Context, credType domain.CredentialType, jobID domain.JobID, orderAt, _ time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, enqueueCall{credType: credType, jobID: jobID, orderAt: orderAt})
	return nil
}

func (e *recordingEnqueuer) last() enqueueCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[len(e.calls)-1]
}

type LifecycleSuite struct {
	suite.Suite
	ctx      context.Context
	jobs     *job.InMemoryStore
	ledger   *escrow.MemoryLedger
	docs     *document.InMemoryStore
	entries  *activity.InMemoryStore
	enqueuer *recordingEnqueuer
	clk      *clock.Fake
	svc      *Service

	requester domain.RequesterID
	verifier  domain.VerifierID
	docRef    document.Ref
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	s.ctx = context.Background()
	s.jobs = job.NewInMemoryStore()
	s.ledger = escrow.NewMemoryLedger()
	s.docs = document.NewInMemoryStore()
	s.entries = activity.NewInMemoryStore()
	s.enqueuer = &recordingEnqueuer{}
	s.clk = clock.NewFake(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	s.requester = domain.RequesterID(uuid.New())
	s.verifier = domain.VerifierID(uuid.New())

	ref, err := s.docs.Put(s.ctx, []byte("passport scan"))
	s.Require().NoError(err)
	s.docRef = ref

	s.svc = s.newService(s.ledger)
}

func (s *LifecycleSuite) newService(ledger escrow.Ledger) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := activity.NewRecorder(s.entries, nil, logger)
	return NewService(s.jobs, ledger, s.docs, recorder, s.enqueuer, s.clk, Config{
		ClaimTTL:      30 * time.Minute,
		SLAWindow:     48 * time.Hour,
		DisputeWindow: 72 * time.Hour,
		CASMaxRetries: 3,
	}, logger, nil)
}

func (s *LifecycleSuite) submit() *job.VerificationJob {
	j, err := s.svc.Submit(s.ctx, SubmitRequest{
		RequesterID:    s.requester,
		DocumentRef:    string(s.docRef),
		CredentialType: domain.CredentialIdentity,
	})
	s.Require().NoError(err)
	return j
}

func (s *LifecycleSuite) claimAndReview() *job.VerificationJob {
	j := s.submit()
	_, err := s.svc.Claim(s.ctx, j.ID, s.verifier)
	s.Require().NoError(err)
	reviewed, err := s.svc.StartReview(s.ctx, j.ID, s.verifier)
	s.Require().NoError(err)
	return reviewed
}

func (s *LifecycleSuite) satisfyChecklist(j *job.VerificationJob) {
	for _, item := range j.Checklist {
		_, err := s.svc.UpdateChecklistItem(s.ctx, j.ID, s.verifier, item.ItemID, true)
		s.Require().NoError(err)
	}
}

func (s *LifecycleSuite) jobEvents(jobID domain.JobID) []activity.Event {
	entries, err := s.entries.ListByJob(s.ctx, jobID, 0, 100)
	s.Require().NoError(err)
	events := make([]activity.Event, len(entries))
	for i, e := range entries {
		events[i] = e.Event
	}
	return events
}

func (s *LifecycleSuite) TestSubmit() {
	s.Run("holds escrow, fixes the quote, and enqueues at submission time", func() {
		j := s.submit()

		s.Equal(job.StatusSubmitted, j.Status)
		s.Equal(int64(1500), j.PriceQuote.BaseFee)
		s.Equal(int64(0), j.PriceQuote.ExpeditedSurcharge)
		s.Equal(s.clk.Now().Add(48*time.Hour), j.SLADeadline)
		s.NotEmpty(j.EscrowRef)
		s.Len(j.Checklist, 5)

		state, ok := s.ledger.StateOf(j.EscrowRef)
		s.Require().True(ok)
		s.Equal(escrow.StateHeld, state)

		call := s.enqueuer.last()
		s.Equal(j.ID, call.jobID)
		s.Equal(j.CreatedAt, call.orderAt)

		s.Equal([]activity.Event{activity.EventSubmitted}, s.jobEvents(j.ID))
	})

	s.Run("expedited halves the SLA window and adds the surcharge", func() {
		j, err := s.svc.Submit(s.ctx, SubmitRequest{
			RequesterID:    s.requester,
			DocumentRef:    string(s.docRef),
			CredentialType: domain.CredentialIdentity,
			Expedited:      true,
		})
		s.Require().NoError(err)

		s.Equal(int64(750), j.PriceQuote.ExpeditedSurcharge)
		s.Equal(int64(2250), j.PriceQuote.Total())
		s.Equal(s.clk.Now().Add(24*time.Hour), j.SLADeadline)
	})

	s.Run("rejects an unresolvable document ref", func() {
		_, err := s.svc.Submit(s.ctx, SubmitRequest{
			RequesterID:    s.requester,
			DocumentRef:    "doc_missing",
			CredentialType: domain.CredentialIdentity,
		})
		s.True(domerrors.HasCode(err, domerrors.CodeInvalidInput))
	})
}

func (s *LifecycleSuite) TestSubmitEscrowFailure() {
	s.Run("no job record exists when the hold fails", func() {
		ctrl := gomock.NewController(s.T())
		ledger := mocks.NewMockLedger(ctrl)
		ledger.EXPECT().Hold(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(escrow.Ref(""), errors.New("payment rail down"))

		svc := s.newService(ledger)
		_, err := svc.Submit(s.ctx, SubmitRequest{
			RequesterID:    s.requester,
			DocumentRef:    string(s.docRef),
			CredentialType: domain.CredentialIdentity,
		})
		s.Require().Error(err)
		s.True(domerrors.HasCode(err, domerrors.CodeAdapter))
	})
}

func (s *LifecycleSuite) TestClaimLifecycle() {
	s.Run("claim attaches a lease", func() {
		j := s.submit()
		claimed, err := s.svc.Claim(s.ctx, j.ID, s.verifier)
		s.Require().NoError(err)

		s.Equal(job.StatusClaimed, claimed.Status)
		s.Require().NotNil(claimed.Claim)
		s.Equal(s.clk.Now().Add(30*time.Minute), claimed.Claim.ExpiresAt)
	})

	s.Run("second claim conflicts", func() {
		j := s.submit()
		_, err := s.svc.Claim(s.ctx, j.ID, s.verifier)
		s.Require().NoError(err)

		_, err = s.svc.Claim(s.ctx, j.ID, domain.VerifierID(uuid.New()))
		s.True(domerrors.HasCode(err, domerrors.CodePrecondition))
	})

	s.Run("heartbeat extends the lease and reports loss without error", func() {
		j := s.submit()
		_, err := s.svc.Claim(s.ctx, j.ID, s.verifier)
		s.Require().NoError(err)

		s.clk.Advance(10 * time.Minute)
		renewed, expiresAt, err := s.svc.Heartbeat(s.ctx, j.ID, s.verifier)
		s.Require().NoError(err)
		s.True(renewed)
		s.Equal(s.clk.Now().Add(30*time.Minute), expiresAt)

		other := domain.VerifierID(uuid.New())
		renewed, _, err = s.svc.Heartbeat(s.ctx, j.ID, other)
		s.Require().NoError(err)
		s.False(renewed)
	})

	s.Run("heartbeat after expiry reports loss", func() {
		j := s.submit()
		_, err := s.svc.Claim(s.ctx, j.ID, s.verifier)
		s.Require().NoError(err)

		s.clk.Advance(31 * time.Minute)
		renewed, _, err := s.svc.Heartbeat(s.ctx, j.ID, s.verifier)
		s.Require().NoError(err)
		s.False(renewed)
	})

	s.Run("release re-enqueues at the release moment", func() {
		j := s.submit()
		_, err := s.svc.Claim(s.ctx, j.ID, s.verifier)
		s.Require().NoError(err)

		s.clk.Advance(5 * time.Minute)
		released, err := s.svc.Release(s.ctx, j.ID, s.verifier)
		s.Require().NoError(err)

		s.Equal(job.StatusSubmitted, released.Status)
		s.Nil(released.Claim)
		call := s.enqueuer.last()
		s.Equal(j.ID, call.jobID)
		s.Equal(s.clk.Now(), call.orderAt)
		s.Contains(s.jobEvents(j.ID), activity.EventClaimReleased)
	})

	s.Run("expire refuses a live lease", func() {
		j := s.submit()
		_, err := s.svc.Claim(s.ctx, j.ID, s.verifier)
		s.Require().NoError(err)

		_, err = s.svc.Expire(s.ctx, j.ID)
		s.True(IsLeaseStillLive(err))
	})

	s.Run("expire reaps an elapsed lease with the expiry event", func() {
		j := s.submit()
		_, err := s.svc.Claim(s.ctx, j.ID, s.verifier)
		s.Require().NoError(err)

		s.clk.Advance(31 * time.Minute)
		expired, err := s.svc.Expire(s.ctx, j.ID)
		s.Require().NoError(err)

		s.Equal(job.StatusSubmitted, expired.Status)
		s.Contains(s.jobEvents(j.ID), activity.EventClaimExpired)

		_, err = s.svc.Claim(s.ctx, j.ID, domain.VerifierID(uuid.New()))
		s.Require().NoError(err)
	})
}

func (s *LifecycleSuite) TestDecide() {
	s.Run("approval requires a complete checklist", func() {
		j := s.claimAndReview()

		_, err := s.svc.Decide(s.ctx, j.ID, s.verifier, job.OutcomeApproved, "")
		s.Require().Error(err)
		s.True(domerrors.HasCode(err, domerrors.CodePrecondition))

		state, _ := s.ledger.StateOf(j.EscrowRef)
		s.Equal(escrow.StateHeld, state)
	})

	s.Run("approval releases escrow and completes", func() {
		j := s.claimAndReview()
		s.satisfyChecklist(j)

		decided, err := s.svc.Decide(s.ctx, j.ID, s.verifier, job.OutcomeApproved, "all good")
		s.Require().NoError(err)

		s.Equal(job.StatusCompleted, decided.Status)
		s.Nil(decided.Claim)
		state, _ := s.ledger.StateOf(j.EscrowRef)
		s.Equal(escrow.StateReleased, state)
	})

	s.Run("rejection requires a reason and refunds", func() {
		j := s.claimAndReview()

		_, err := s.svc.Decide(s.ctx, j.ID, s.verifier, job.OutcomeRejected, "")
		s.True(domerrors.HasCode(err, domerrors.CodePrecondition))

		decided, err := s.svc.Decide(s.ctx, j.ID, s.verifier, job.OutcomeRejected, "document is forged")
		s.Require().NoError(err)

		s.Equal(job.StatusRejected, decided.Status)
		state, _ := s.ledger.StateOf(j.EscrowRef)
		s.Equal(escrow.StateRefunded, state)
	})

	s.Run("only the claimant decides", func() {
		j := s.claimAndReview()
		s.satisfyChecklist(j)

		_, err := s.svc.Decide(s.ctx, j.ID, domain.VerifierID(uuid.New()), job.OutcomeApproved, "")
		s.True(domerrors.HasCode(err, domerrors.CodeForbidden))
	})

	s.Run("deciding twice fails on state, not escrow", func() {
		j := s.claimAndReview()
		s.satisfyChecklist(j)
		_, err := s.svc.Decide(s.ctx, j.ID, s.verifier, job.OutcomeApproved, "")
		s.Require().NoError(err)

		_, err = s.svc.Decide(s.ctx, j.ID, s.verifier, job.OutcomeApproved, "")
		s.True(domerrors.HasCode(err, domerrors.CodePrecondition))
	})

	s.Run("ledger failure aborts the transition", func() {
		ctrl := gomock.NewController(s.T())
		ledger := mocks.NewMockLedger(ctrl)
		ledger.EXPECT().Hold(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(escrow.Ref("esc_test"), nil)
		ledger.EXPECT().Release(gomock.Any(), escrow.Ref("esc_test"), gomock.Any()).
			Return(errors.New("payment rail down"))

		svc := s.newService(ledger)
		j, err := svc.Submit(s.ctx, SubmitRequest{
			RequesterID:    s.requester,
			DocumentRef:    string(s.docRef),
			CredentialType: domain.CredentialIdentity,
		})
		s.Require().NoError(err)
		_, err = svc.Claim(s.ctx, j.ID, s.verifier)
		s.Require().NoError(err)
		_, err = svc.StartReview(s.ctx, j.ID, s.verifier)
		s.Require().NoError(err)
		for _, item := range j.Checklist {
			_, err := svc.UpdateChecklistItem(s.ctx, j.ID, s.verifier, item.ItemID, true)
			s.Require().NoError(err)
		}

		_, err = svc.Decide(s.ctx, j.ID, s.verifier, job.OutcomeApproved, "")
		s.Require().Error(err)
		s.True(domerrors.HasCode(err, domerrors.CodeAdapter))

		got, err := s.jobs.Get(s.ctx, j.ID)
		s.Require().NoError(err)
		s.Equal(job.StatusInReview, got.Status)
		s.Nil(got.Decision)
	})
}

func (s *LifecycleSuite) TestActivityOrder() {
	s.Run("per-job log follows the transition order", func() {
		j := s.claimAndReview()
		s.satisfyChecklist(j)
		_, err := s.svc.Decide(s.ctx, j.ID, s.verifier, job.OutcomeApproved, "")
		s.Require().NoError(err)

		events := s.jobEvents(j.ID)
		s.Equal(activity.EventSubmitted, events[0])
		s.Equal(activity.EventClaimed, events[1])
		s.Equal(activity.EventReviewStarted, events[2])
		s.Equal(activity.EventDecided, events[len(events)-1])
	})
}

func (s *LifecycleSuite) TestVisibility() {
	s.Run("requester, claimant, and admin may view; strangers may not", func() {
		j := s.submit()
		_, err := s.svc.Claim(s.ctx, j.ID, s.verifier)
		s.Require().NoError(err)

		_, err = s.svc.GetJob(s.ctx, j.ID, Actor{ID: s.requester.String(), Role: domain.RoleRequester})
		s.Require().NoError(err)
		_, err = s.svc.GetJob(s.ctx, j.ID, Actor{ID: s.verifier.String(), Role: domain.RoleVerifier})
		s.Require().NoError(err)
		_, err = s.svc.GetJob(s.ctx, j.ID, Actor{ID: uuid.NewString(), Role: domain.RoleAdmin})
		s.Require().NoError(err)

		_, err = s.svc.GetJob(s.ctx, j.ID, Actor{ID: uuid.NewString(), Role: domain.RoleRequester})
		s.True(domerrors.HasCode(err, domerrors.CodeForbidden))
		_, err = s.svc.GetJob(s.ctx, j.ID, Actor{ID: uuid.NewString(), Role: domain.RoleVerifier})
		s.True(domerrors.HasCode(err, domerrors.CodeForbidden))
	})
}

func (s *LifecycleSuite) TestSLAFlag() {
	s.Run("marks an overdue job once", func() {
		j := s.submit()
		s.clk.Advance(49 * time.Hour)

		flagged, err := s.svc.MarkSLABreached(s.ctx, j.ID)
		s.Require().NoError(err)
		s.Require().NotNil(flagged)
		s.True(flagged.SLABreached)
		s.Contains(s.jobEvents(j.ID), activity.EventSLABreached)

		again, err := s.svc.MarkSLABreached(s.ctx, j.ID)
		s.Require().NoError(err)
		s.Nil(again)
	})

	s.Run("refuses a job still inside its window", func() {
		j := s.submit()
		flagged, err := s.svc.MarkSLABreached(s.ctx, j.ID)
		s.Require().NoError(err)
		s.Nil(flagged)
	})
}
