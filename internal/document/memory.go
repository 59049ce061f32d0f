package document

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"verza/pkg/platform/sentinel"
)

// InMemoryStore keeps blobs in memory for development and tests.
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[Ref][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[Ref][]byte)}
}

func (s *InMemoryStore) Put(_ context.Context, blob []byte) (Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := Ref("doc_" + uuid.NewString())
	stored := make([]byte, len(blob))
	copy(stored, blob)
	s.blobs[ref] = stored
	return ref, nil
}

func (s *InMemoryStore) Get(_ context.Context, ref Ref) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if blob, ok := s.blobs[ref]; ok {
		out := make([]byte, len(blob))
		copy(out, blob)
		return out, nil
	}
	return nil, sentinel.ErrNotFound
}
