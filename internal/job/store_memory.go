package job

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"verza/pkg/domain"
	"verza/pkg/platform/sentinel"
)

// InMemoryStore keeps jobs in a mutex-guarded map. It intentionally favors
// clarity over performance and implements the same compare-and-swap contract
// as the Postgres store so services cannot tell them apart.
type InMemoryStore struct {
	mu   sync.RWMutex
	jobs map[domain.JobID]*VerificationJob
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{jobs: make(map[domain.JobID]*VerificationJob)}
}

// clone round-trips through JSON so callers never share pointers with the
// store's copy. Claim, checklist, and decision are all plain data.
func clone(j *VerificationJob) *VerificationJob {
	raw, err := json.Marshal(j)
	if err != nil {
		panic("job: clone marshal: " + err.Error())
	}
	var out VerificationJob
	if err := json.Unmarshal(raw, &out); err != nil {
		panic("job: clone unmarshal: " + err.Error())
	}
	return &out
}

func (s *InMemoryStore) Create(_ context.Context, j *VerificationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[j.ID]; exists {
		return sentinel.ErrConflict
	}
	stored := clone(j)
	stored.Version = 1
	s.jobs[j.ID] = stored
	j.Version = 1
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.JobID) (*VerificationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if j, ok := s.jobs[id]; ok {
		return clone(j), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) CompareAndSwap(_ context.Context, id domain.JobID, expectedVersion int64, mutate Mutator) (*VerificationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.jobs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if current.Version != expectedVersion {
		return nil, sentinel.ErrVersionMismatch
	}
	next := clone(current)
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.Version = expectedVersion + 1
	s.jobs[id] = next
	return clone(next), nil
}

func (s *InMemoryStore) ListSubmitted(_ context.Context, credType domain.CredentialType) ([]*VerificationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*VerificationJob
	for _, j := range s.jobs {
		if j.Status == StatusSubmitted && j.CredentialType == credType {
			out = append(out, clone(j))
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		}
		return out[a].SLADeadline.Before(out[b].SLADeadline)
	})
	return out, nil
}

func (s *InMemoryStore) ListExpiredClaims(_ context.Context, now time.Time) ([]*VerificationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*VerificationJob
	for _, j := range s.jobs {
		if j.ClaimExpired(now) {
			out = append(out, clone(j))
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListSLABreaches(_ context.Context, now time.Time) ([]*VerificationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*VerificationJob
	for _, j := range s.jobs {
		if !j.Status.IsTerminal() && j.Status != StatusDisputed && !j.SLABreached && j.SLADeadline.Before(now) {
			out = append(out, clone(j))
		}
	}
	return out, nil
}
