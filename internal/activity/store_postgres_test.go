//go:build integration

package activity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"verza/internal/activity"
	"verza/internal/platform/postgres"
	"verza/pkg/domain"
	"verza/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx   context.Context
	pg    *containers.PostgresContainer
	store *activity.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.Migrate(s.ctx, s.pg.Pool))
	s.store = activity.NewPostgres(s.pg.Pool)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	s.pg.Close(s.ctx)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(s.ctx))
}

func (s *PostgresStoreSuite) append(jobID domain.JobID, event activity.Event, meta map[string]string) activity.Entry {
	entry, err := s.store.Append(s.ctx, activity.Entry{
		JobID:     jobID,
		Event:     event,
		From:      "submitted",
		To:        "claimed",
		Actor:     "system",
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
		Metadata:  meta,
	})
	s.Require().NoError(err)
	return entry
}

func (s *PostgresStoreSuite) TestAppendAssignsGlobalSeq() {
	a := domain.NewJobID()
	b := domain.NewJobID()

	first := s.append(a, activity.EventSubmitted, nil)
	second := s.append(b, activity.EventSubmitted, nil)
	third := s.append(a, activity.EventClaimed, map[string]string{"verifier_id": "v1"})

	s.Less(first.Seq, second.Seq)
	s.Less(second.Seq, third.Seq)
}

func (s *PostgresStoreSuite) TestListByJob() {
	jobID := domain.NewJobID()
	other := domain.NewJobID()
	events := []activity.Event{
		activity.EventSubmitted,
		activity.EventClaimed,
		activity.EventReviewStarted,
		activity.EventChecklistUpdate,
		activity.EventDecided,
	}
	for _, e := range events {
		s.append(jobID, e, map[string]string{"event": string(e)})
		s.append(other, e, nil)
	}

	got, err := s.store.ListByJob(s.ctx, jobID, 0, 100)
	s.Require().NoError(err)
	s.Require().Len(got, len(events))
	for i, entry := range got {
		s.Equal(jobID, entry.JobID)
		s.Equal(events[i], entry.Event)
		s.Equal(string(events[i]), entry.Metadata["event"])
	}

	page, err := s.store.ListByJob(s.ctx, jobID, 0, 2)
	s.Require().NoError(err)
	s.Require().Len(page, 2)

	rest, err := s.store.ListByJob(s.ctx, jobID, page[1].Seq, 100)
	s.Require().NoError(err)
	s.Require().Len(rest, len(events)-2)
	s.Equal(activity.EventReviewStarted, rest[0].Event)
}
