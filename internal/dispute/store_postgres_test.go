//go:build integration

package dispute_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"verza/internal/dispute"
	"verza/internal/platform/postgres"
	"verza/pkg/domain"
	"verza/pkg/platform/sentinel"
	"verza/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx   context.Context
	pg    *containers.PostgresContainer
	store *dispute.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.Migrate(s.ctx, s.pg.Pool))
	s.store = dispute.NewPostgres(s.pg.Pool)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	s.pg.Close(s.ctx)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(s.ctx))
}

func (s *PostgresStoreSuite) newDispute(filedAt time.Time) *dispute.Dispute {
	return &dispute.Dispute{
		ID:          domain.NewDisputeID(),
		JobID:       domain.NewJobID(),
		FiledBy:     uuid.NewString(),
		FiledByRole: domain.RoleRequester,
		Reason:      "outcome contested",
		Status:      dispute.StatusOpen,
		FiledAt:     filedAt,
		UpdatedAt:   filedAt,
	}
}

func (s *PostgresStoreSuite) TestCreateAndGet() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	d := s.newDispute(now)
	s.Require().NoError(s.store.Create(s.ctx, d))

	got, err := s.store.Get(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(d.ID, got.ID)
	s.Equal(d.JobID, got.JobID)
	s.Equal(dispute.StatusOpen, got.Status)
	s.Nil(got.Resolution)

	byJob, err := s.store.GetByJob(s.ctx, d.JobID)
	s.Require().NoError(err)
	s.Equal(d.ID, byJob.ID)

	_, err = s.store.Get(s.ctx, domain.NewDisputeID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestJobExclusivity() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	d := s.newDispute(now)
	s.Require().NoError(s.store.Create(s.ctx, d))

	second := s.newDispute(now)
	second.JobID = d.JobID
	s.ErrorIs(s.store.Create(s.ctx, second), sentinel.ErrConflict)

	// Resolving the live dispute frees the slot for a fresh filing.
	d.Status = dispute.StatusResolved
	d.UpdatedAt = now.Add(time.Minute)
	s.Require().NoError(s.store.Update(s.ctx, d))

	second.FiledAt = now.Add(2 * time.Minute)
	second.UpdatedAt = second.FiledAt
	s.Require().NoError(s.store.Create(s.ctx, second))

	latest, err := s.store.GetByJob(s.ctx, d.JobID)
	s.Require().NoError(err)
	s.Equal(second.ID, latest.ID)
}

func (s *PostgresStoreSuite) TestUpdateWithResolution() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	d := s.newDispute(now)
	s.Require().NoError(s.store.Create(s.ctx, d))

	d.Status = dispute.StatusResolved
	d.Resolution = &dispute.Resolution{
		Kind:             domain.ResolutionPartialRefund,
		AmountToVerifier: 500,
		Notes:            "both partly right",
		ResolvedBy:       uuid.NewString(),
		ResolvedAt:       now.Add(time.Hour),
	}
	d.UpdatedAt = now.Add(time.Hour)
	s.Require().NoError(s.store.Update(s.ctx, d))

	got, err := s.store.Get(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(dispute.StatusResolved, got.Status)
	s.Require().NotNil(got.Resolution)
	s.Equal(domain.ResolutionPartialRefund, got.Resolution.Kind)
	s.Equal(int64(500), got.Resolution.AmountToVerifier)

	missing := s.newDispute(now)
	s.ErrorIs(s.store.Update(s.ctx, missing), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListOpen() {
	base := time.Now().UTC().Truncate(time.Microsecond)

	older := s.newDispute(base)
	younger := s.newDispute(base.Add(time.Minute))
	reviewing := s.newDispute(base.Add(2 * time.Minute))
	reviewing.Status = dispute.StatusUnderReview
	resolved := s.newDispute(base.Add(3 * time.Minute))
	resolved.Status = dispute.StatusResolved

	for _, d := range []*dispute.Dispute{younger, older, reviewing, resolved} {
		s.Require().NoError(s.store.Create(s.ctx, d))
	}

	open, err := s.store.ListOpen(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(open, 3)
	s.Equal(older.ID, open[0].ID)
	s.Equal(younger.ID, open[1].ID)
	s.Equal(reviewing.ID, open[2].ID)
}
