package activity

import (
	"context"
	"sync"

	"verza/pkg/domain"
)

// InMemoryStore keeps per-job entry slices guarded by one mutex. Seq is
// global and monotonic, matching the Postgres bigserial behavior.
type InMemoryStore struct {
	mu      sync.RWMutex
	nextSeq int64
	entries map[domain.JobID][]Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[domain.JobID][]Entry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	entry.Seq = s.nextSeq
	s.entries[entry.JobID] = append(s.entries[entry.JobID], entry)
	return entry, nil
}

func (s *InMemoryStore) ListByJob(_ context.Context, jobID domain.JobID, afterSeq int64, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries[jobID] {
		if e.Seq > afterSeq {
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
