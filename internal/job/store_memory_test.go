package job

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"verza/pkg/domain"
	"verza/pkg/platform/sentinel"
)

type StoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
	s.now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

func (s *StoreSuite) newJob(credType domain.CredentialType, createdAt time.Time) *VerificationJob {
	return &VerificationJob{
		ID:             domain.NewJobID(),
		RequesterID:    domain.RequesterID(uuid.New()),
		CredentialType: credType,
		Status:         StatusSubmitted,
		SLADeadline:    createdAt.Add(48 * time.Hour),
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}

func (s *StoreSuite) TestCreateAndGet() {
	s.Run("create sets version one and get returns a copy", func() {
		j := s.newJob(domain.CredentialIdentity, s.now)
		s.Require().NoError(s.store.Create(s.ctx, j))
		s.Equal(int64(1), j.Version)

		got, err := s.store.Get(s.ctx, j.ID)
		s.Require().NoError(err)
		got.Status = StatusCompleted

		again, err := s.store.Get(s.ctx, j.ID)
		s.Require().NoError(err)
		s.Equal(StatusSubmitted, again.Status)
	})

	s.Run("duplicate create conflicts", func() {
		j := s.newJob(domain.CredentialIdentity, s.now)
		s.Require().NoError(s.store.Create(s.ctx, j))
		s.Require().ErrorIs(s.store.Create(s.ctx, j), sentinel.ErrConflict)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.Get(s.ctx, domain.NewJobID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *StoreSuite) TestCompareAndSwap() {
	s.Run("mutates and bumps the version", func() {
		j := s.newJob(domain.CredentialIdentity, s.now)
		s.Require().NoError(s.store.Create(s.ctx, j))

		updated, err := s.store.CompareAndSwap(s.ctx, j.ID, 1, func(j *VerificationJob) error {
			j.Status = StatusClaimed
			return nil
		})
		s.Require().NoError(err)
		s.Equal(StatusClaimed, updated.Status)
		s.Equal(int64(2), updated.Version)
	})

	s.Run("rejects a stale version without applying", func() {
		j := s.newJob(domain.CredentialIdentity, s.now)
		s.Require().NoError(s.store.Create(s.ctx, j))

		_, err := s.store.CompareAndSwap(s.ctx, j.ID, 7, func(j *VerificationJob) error {
			j.Status = StatusClaimed
			return nil
		})
		s.Require().ErrorIs(err, sentinel.ErrVersionMismatch)

		got, err := s.store.Get(s.ctx, j.ID)
		s.Require().NoError(err)
		s.Equal(StatusSubmitted, got.Status)
		s.Equal(int64(1), got.Version)
	})

	s.Run("mutator error leaves the record untouched", func() {
		j := s.newJob(domain.CredentialIdentity, s.now)
		s.Require().NoError(s.store.Create(s.ctx, j))

		_, err := s.store.CompareAndSwap(s.ctx, j.ID, 1, func(j *VerificationJob) error {
			j.Status = StatusClaimed
			return sentinel.ErrInvalidState
		})
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)

		got, err := s.store.Get(s.ctx, j.ID)
		s.Require().NoError(err)
		s.Equal(StatusSubmitted, got.Status)
	})

	s.Run("exactly one concurrent swap wins per version", func() {
		j := s.newJob(domain.CredentialIdentity, s.now)
		s.Require().NoError(s.store.Create(s.ctx, j))

		const racers = 8
		var wg sync.WaitGroup
		wins := make(chan struct{}, racers)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.store.CompareAndSwap(s.ctx, j.ID, 1, func(j *VerificationJob) error {
					j.Status = StatusClaimed
					return nil
				})
				if err == nil {
					wins <- struct{}{}
				}
			}()
		}
		wg.Wait()
		close(wins)

		var winners int
		for range wins {
			winners++
		}
		s.Equal(1, winners)
	})
}

func (s *StoreSuite) TestListSubmitted() {
	s.Run("orders oldest first with SLA tie-break", func() {
		older := s.newJob(domain.CredentialIdentity, s.now.Add(-time.Hour))
		tieTight := s.newJob(domain.CredentialIdentity, s.now)
		tieTight.SLADeadline = s.now.Add(24 * time.Hour)
		tieLoose := s.newJob(domain.CredentialIdentity, s.now)
		tieLoose.SLADeadline = s.now.Add(48 * time.Hour)
		otherType := s.newJob(domain.CredentialEducation, s.now.Add(-2*time.Hour))

		for _, j := range []*VerificationJob{tieLoose, otherType, older, tieTight} {
			s.Require().NoError(s.store.Create(s.ctx, j))
		}

		listed, err := s.store.ListSubmitted(s.ctx, domain.CredentialIdentity)
		s.Require().NoError(err)
		s.Require().Len(listed, 3)
		s.Equal(older.ID, listed[0].ID)
		s.Equal(tieTight.ID, listed[1].ID)
		s.Equal(tieLoose.ID, listed[2].ID)
	})

	s.Run("excludes non-submitted jobs", func() {
		j := s.newJob(domain.CredentialFinancial, s.now)
		s.Require().NoError(s.store.Create(s.ctx, j))
		_, err := s.store.CompareAndSwap(s.ctx, j.ID, 1, func(j *VerificationJob) error {
			j.Status = StatusClaimed
			return nil
		})
		s.Require().NoError(err)

		listed, err := s.store.ListSubmitted(s.ctx, domain.CredentialFinancial)
		s.Require().NoError(err)
		s.Empty(listed)
	})
}

func (s *StoreSuite) TestSweepQueries() {
	verifier := domain.VerifierID(uuid.New())

	s.Run("lists only elapsed claims", func() {
		live := s.newJob(domain.CredentialIdentity, s.now)
		expired := s.newJob(domain.CredentialIdentity, s.now)
		for _, j := range []*VerificationJob{live, expired} {
			s.Require().NoError(s.store.Create(s.ctx, j))
		}
		claimAt := func(id domain.JobID, ttl time.Duration) {
			_, err := s.store.CompareAndSwap(s.ctx, id, 1, func(j *VerificationJob) error {
				j.ApplyClaim(verifier, s.now, ttl)
				return nil
			})
			s.Require().NoError(err)
		}
		claimAt(live.ID, time.Hour)
		claimAt(expired.ID, time.Minute)

		stale, err := s.store.ListExpiredClaims(s.ctx, s.now.Add(30*time.Minute))
		s.Require().NoError(err)
		s.Require().Len(stale, 1)
		s.Equal(expired.ID, stale[0].ID)
	})

	s.Run("lists unflagged overdue jobs once", func() {
		overdue := s.newJob(domain.CredentialEmployment, s.now)
		overdue.SLADeadline = s.now.Add(time.Hour)
		s.Require().NoError(s.store.Create(s.ctx, overdue))

		breached, err := s.store.ListSLABreaches(s.ctx, s.now.Add(2*time.Hour))
		s.Require().NoError(err)
		s.Require().Len(breached, 1)

		_, err = s.store.CompareAndSwap(s.ctx, overdue.ID, 1, func(j *VerificationJob) error {
			j.SLABreached = true
			return nil
		})
		s.Require().NoError(err)

		breached, err = s.store.ListSLABreaches(s.ctx, s.now.Add(2*time.Hour))
		s.Require().NoError(err)
		s.Empty(breached)
	})
}
