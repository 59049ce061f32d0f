package escrow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"verza/pkg/domain"
	"verza/pkg/platform/sentinel"
)

type LedgerSuite struct {
	suite.Suite
	ledger *MemoryLedger
	ctx    context.Context
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.ledger = NewMemoryLedger()
	s.ctx = context.Background()
}

func (s *LedgerSuite) hold(amount int64) Ref {
	ref, err := s.ledger.Hold(s.ctx, domain.NewJobID(), amount)
	s.Require().NoError(err)
	return ref
}

func (s *LedgerSuite) TestHold() {
	s.Run("is idempotent per job", func() {
		jobID := domain.NewJobID()
		ref1, err := s.ledger.Hold(s.ctx, jobID, 1500)
		s.Require().NoError(err)
		ref2, err := s.ledger.Hold(s.ctx, jobID, 1500)
		s.Require().NoError(err)
		s.Equal(ref1, ref2)
	})

	s.Run("rejects non-positive amounts", func() {
		_, err := s.ledger.Hold(s.ctx, domain.NewJobID(), 0)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})
}

func (s *LedgerSuite) TestOneTerminalOpPerEpoch() {
	s.Run("release then same-key retry is a no-op", func() {
		ref := s.hold(1500)
		s.Require().NoError(s.ledger.Release(s.ctx, ref, "op-1"))
		s.Require().NoError(s.ledger.Release(s.ctx, ref, "op-1"))

		state, ok := s.ledger.StateOf(ref)
		s.Require().True(ok)
		s.Equal(StateReleased, state)
	})

	s.Run("a different terminal op is rejected", func() {
		ref := s.hold(1500)
		s.Require().NoError(s.ledger.Release(s.ctx, ref, "op-1"))

		s.Require().ErrorIs(s.ledger.Refund(s.ctx, ref, "op-2"), sentinel.ErrAlreadyFinalized)
		s.Require().ErrorIs(s.ledger.Release(s.ctx, ref, "op-3"), sentinel.ErrAlreadyFinalized)
	})

	s.Run("split validates the share", func() {
		ref := s.hold(1500)
		s.Require().ErrorIs(s.ledger.Split(s.ctx, ref, 0, "op-1"), sentinel.ErrInvalidState)
		s.Require().ErrorIs(s.ledger.Split(s.ctx, ref, 1500, "op-1"), sentinel.ErrInvalidState)
		s.Require().NoError(s.ledger.Split(s.ctx, ref, 500, "op-1"))
	})

	s.Run("unknown ref is not found", func() {
		s.Require().ErrorIs(s.ledger.Release(s.ctx, Ref("esc_missing"), "op"), sentinel.ErrNotFound)
	})
}

func (s *LedgerSuite) TestFreezeReopensSettlement() {
	s.Run("a frozen epoch accepts one new terminal op", func() {
		ref := s.hold(2000)
		s.Require().NoError(s.ledger.Release(s.ctx, ref, "decision"))

		s.Require().NoError(s.ledger.Freeze(s.ctx, ref))
		state, _ := s.ledger.StateOf(ref)
		s.Equal(StateFrozen, state)

		s.Require().NoError(s.ledger.Refund(s.ctx, ref, "ruling"))
		state, _ = s.ledger.StateOf(ref)
		s.Equal(StateRefunded, state)

		s.Require().ErrorIs(s.ledger.Release(s.ctx, ref, "late"), sentinel.ErrAlreadyFinalized)
	})

	s.Run("freeze is idempotent", func() {
		ref := s.hold(2000)
		s.Require().NoError(s.ledger.Freeze(s.ctx, ref))
		s.Require().NoError(s.ledger.Freeze(s.ctx, ref))
	})
}
