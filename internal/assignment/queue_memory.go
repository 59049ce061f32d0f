package assignment

import (
	"context"
	"sort"
	"sync"
	"time"

	"verza/pkg/domain"
)

type queueEntry struct {
	jobID   domain.JobID
	orderAt time.Time
	sla     time.Time
}

// InMemoryQueue is a mutex-guarded QueueIndex for tests and single-node runs.
type InMemoryQueue struct {
	mu     sync.Mutex
	queues map[domain.CredentialType][]queueEntry
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{queues: make(map[domain.CredentialType][]queueEntry)}
}

func (q *InMemoryQueue) Enqueue(_ context.Context, credType domain.CredentialType, jobID domain.JobID, orderAt, slaDeadline time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.queues[credType]
	for _, e := range entries {
		if e.jobID == jobID {
			return nil
		}
	}
	entries = append(entries, queueEntry{jobID: jobID, orderAt: orderAt, sla: slaDeadline})
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].orderAt.Equal(entries[j].orderAt) {
			return entries[i].orderAt.Before(entries[j].orderAt)
		}
		return entries[i].sla.Before(entries[j].sla)
	})
	q.queues[credType] = entries
	return nil
}

func (q *InMemoryQueue) PopHead(_ context.Context, credType domain.CredentialType) (domain.JobID, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.queues[credType]
	if len(entries) == 0 {
		return domain.JobID{}, false, nil
	}
	head := entries[0]
	q.queues[credType] = entries[1:]
	return head.jobID, true, nil
}

func (q *InMemoryQueue) Depth(_ context.Context, credType domain.CredentialType) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.queues[credType])), nil
}
