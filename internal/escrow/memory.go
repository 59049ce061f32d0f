package escrow

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"verza/pkg/domain"
	"verza/pkg/platform/sentinel"
)

// State tracks where a held amount currently sits.
type State string

const (
	StateHeld     State = "held"
	StateFrozen   State = "frozen"
	StateReleased State = "released"
	StateRefunded State = "refunded"
	StateSplit    State = "split"
)

type account struct {
	jobID           domain.JobID
	amount          int64
	state           State
	appliedOpKey    string
	splitToVerifier int64
}

// MemoryLedger is the reference ledger used in development and tests. It
// enforces the same settlement-epoch rules a real payment collaborator must:
// one terminal operation per epoch, idempotent under operation-key retries.
type MemoryLedger struct {
	mu       sync.Mutex
	accounts map[Ref]*account
	byJob    map[domain.JobID]Ref
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		accounts: make(map[Ref]*account),
		byJob:    make(map[domain.JobID]Ref),
	}
}

func (l *MemoryLedger) Hold(_ context.Context, jobID domain.JobID, amount int64) (Ref, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ref, ok := l.byJob[jobID]; ok {
		return ref, nil
	}
	if amount <= 0 {
		return "", sentinel.ErrInvalidState
	}
	ref := Ref("esc_" + uuid.NewString())
	l.accounts[ref] = &account{jobID: jobID, amount: amount, state: StateHeld}
	l.byJob[jobID] = ref
	return ref, nil
}

func (l *MemoryLedger) Release(_ context.Context, ref Ref, opKey string) error {
	return l.settle(ref, opKey, StateReleased, 0)
}

func (l *MemoryLedger) Refund(_ context.Context, ref Ref, opKey string) error {
	return l.settle(ref, opKey, StateRefunded, 0)
}

func (l *MemoryLedger) Split(_ context.Context, ref Ref, amountToVerifier int64, opKey string) error {
	l.mu.Lock()
	acct, ok := l.accounts[ref]
	l.mu.Unlock()
	if !ok {
		return sentinel.ErrNotFound
	}
	if amountToVerifier <= 0 || amountToVerifier >= acct.amount {
		return sentinel.ErrInvalidState
	}
	return l.settle(ref, opKey, StateSplit, amountToVerifier)
}

func (l *MemoryLedger) Freeze(_ context.Context, ref Ref) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[ref]
	if !ok {
		return sentinel.ErrNotFound
	}
	if acct.state == StateFrozen {
		return nil
	}
	acct.state = StateFrozen
	acct.appliedOpKey = ""
	acct.splitToVerifier = 0
	return nil
}

// StateOf reports the current state of a ref. Test helper.
func (l *MemoryLedger) StateOf(ref Ref) (State, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[ref]
	if !ok {
		return "", false
	}
	return acct.state, true
}

func (l *MemoryLedger) settle(ref Ref, opKey string, to State, splitToVerifier int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[ref]
	if !ok {
		return sentinel.ErrNotFound
	}
	switch acct.state {
	case StateHeld, StateFrozen:
		acct.state = to
		acct.appliedOpKey = opKey
		acct.splitToVerifier = splitToVerifier
		return nil
	case to:
		if acct.appliedOpKey == opKey {
			return nil
		}
		return sentinel.ErrAlreadyFinalized
	default:
		return sentinel.ErrAlreadyFinalized
	}
}
