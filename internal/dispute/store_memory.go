package dispute

import (
	"context"
	"sort"
	"sync"

	"verza/pkg/domain"
	"verza/pkg/platform/sentinel"
)

// InMemoryStore is a mutex-guarded Store for tests and local runs.
type InMemoryStore struct {
	mu    sync.RWMutex
	byID  map[domain.DisputeID]*Dispute
	byJob map[domain.JobID]domain.DisputeID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:  make(map[domain.DisputeID]*Dispute),
		byJob: make(map[domain.JobID]domain.DisputeID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, d *Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[d.ID]; exists {
		return sentinel.ErrConflict
	}
	// A resolved dispute does not block a new filing for the same job; the
	// byJob slot tracks the latest one.
	if prevID, exists := s.byJob[d.JobID]; exists && s.byID[prevID].Status != StatusResolved {
		return sentinel.ErrConflict
	}
	s.byID[d.ID] = cloneDispute(d)
	s.byJob[d.JobID] = d.ID
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.DisputeID) (*Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneDispute(d), nil
}

func (s *InMemoryStore) GetByJob(_ context.Context, jobID domain.JobID) (*Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byJob[jobID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneDispute(s.byID[id]), nil
}

func (s *InMemoryStore) Update(_ context.Context, d *Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[d.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byID[d.ID] = cloneDispute(d)
	return nil
}

func (s *InMemoryStore) ListOpen(_ context.Context) ([]*Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var open []*Dispute
	for _, d := range s.byID {
		if d.Status != StatusResolved {
			open = append(open, cloneDispute(d))
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].FiledAt.Before(open[j].FiledAt) })
	return open, nil
}

func cloneDispute(d *Dispute) *Dispute {
	out := *d
	if d.Resolution != nil {
		res := *d.Resolution
		out.Resolution = &res
	}
	return &out
}
