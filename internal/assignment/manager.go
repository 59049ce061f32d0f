package assignment

import (
	"context"
	"log/slog"
	"time"

	"verza/internal/assignment/metrics"
	"verza/internal/job"
	"verza/internal/lifecycle"
	"verza/pkg/domain"
	domerrors "verza/pkg/domain-errors"
)

// maxPopsPerClaim bounds how many stale queue entries one claim call will
// chew through before giving up.
const maxPopsPerClaim = 16

// Manager hands queue heads to claiming verifiers. The queue is advisory;
// the lifecycle service's compare-and-swap is what actually awards a claim,
// so two managers popping the same stale entry resolve safely.
type Manager struct {
	queue   QueueIndex
	jobs    job.Store
	lc      *lifecycle.Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewManager(queue QueueIndex, jobs job.Store, lc *lifecycle.Service, logger *slog.Logger, m *metrics.Metrics) *Manager {
	return &Manager{queue: queue, jobs: jobs, lc: lc, logger: logger, metrics: m}
}

// Claim pops queue heads until one is successfully claimed. Entries whose job
// moved on since enqueue (already claimed, decided, disputed) are discarded;
// the job record is authoritative.
func (m *Manager) Claim(ctx context.Context, credType domain.CredentialType, verifierID domain.VerifierID) (*job.VerificationJob, error) {
	for i := 0; i < maxPopsPerClaim; i++ {
		jobID, ok, err := m.queue.PopHead(ctx, credType)
		if err != nil {
			m.metrics.ObserveClaim("queue_error")
			return nil, err
		}
		if !ok {
			m.metrics.ObserveClaim("empty")
			return nil, domerrors.Newf(domerrors.CodeNotFound, "no %s jobs waiting", credType)
		}

		claimed, err := m.lc.Claim(ctx, jobID, verifierID)
		if err == nil {
			m.metrics.ObserveClaim("granted")
			m.observeDepth(ctx, credType)
			return claimed, nil
		}
		switch domerrors.CodeOf(err) {
		case domerrors.CodePrecondition, domerrors.CodeConflict, domerrors.CodeConcurrency, domerrors.CodeNotFound:
			// Stale entry; the job was claimed or settled after enqueue.
			m.logger.DebugContext(ctx, "skipping stale queue entry",
				"job_id", jobID,
				"credential_type", credType,
				"reason", domerrors.MessageOf(err),
			)
			continue
		default:
			m.metrics.ObserveClaim("error")
			return nil, err
		}
	}
	m.metrics.ObserveClaim("exhausted")
	return nil, domerrors.New(domerrors.CodeConflict, "queue is contended, retry")
}

// Heartbeat extends the caller's lease. ok is false when the lease is gone.
func (m *Manager) Heartbeat(ctx context.Context, jobID domain.JobID, verifierID domain.VerifierID) (bool, time.Time, error) {
	return m.lc.Heartbeat(ctx, jobID, verifierID)
}

// Release gives a claim back voluntarily. The job re-enters its queue at the
// tail.
func (m *Manager) Release(ctx context.Context, jobID domain.JobID, verifierID domain.VerifierID) (*job.VerificationJob, error) {
	released, err := m.lc.Release(ctx, jobID, verifierID)
	if err != nil {
		return nil, err
	}
	m.observeDepth(ctx, released.CredentialType)
	return released, nil
}

// QueueInfo is a dashboard snapshot of one credential-type queue.
type QueueInfo struct {
	CredentialType domain.CredentialType `json:"credential_type"`
	Depth          int64                 `json:"depth"`
	Head           *QueueHead            `json:"head,omitempty"`
}

// QueueHead describes the next job in line without popping it.
type QueueHead struct {
	JobID       domain.JobID `json:"job_id"`
	SubmittedAt time.Time    `json:"submitted_at"`
	SLADeadline time.Time    `json:"sla_deadline"`
}

// Info reports queue depth and head metadata. The head comes from the job
// store rather than the index so it reflects durable truth.
func (m *Manager) Info(ctx context.Context, credType domain.CredentialType) (*QueueInfo, error) {
	depth, err := m.Depth(ctx, credType)
	if err != nil {
		return nil, err
	}
	info := &QueueInfo{CredentialType: credType, Depth: depth}

	submitted, err := m.jobs.ListSubmitted(ctx, credType)
	if err != nil {
		return nil, domerrors.Wrap(err, domerrors.CodeInternal, "queue inspection failed")
	}
	if len(submitted) > 0 {
		head := submitted[0]
		info.Head = &QueueHead{JobID: head.ID, SubmittedAt: head.CreatedAt, SLADeadline: head.SLADeadline}
	}
	return info, nil
}

// Depth reports how many jobs wait on one credential-type queue.
func (m *Manager) Depth(ctx context.Context, credType domain.CredentialType) (int64, error) {
	depth, err := m.queue.Depth(ctx, credType)
	if err != nil {
		return 0, err
	}
	m.metrics.SetQueueDepth(string(credType), depth)
	return depth, nil
}

// Rebuild reloads every queue from the job store. Run at startup so an
// in-memory or flushed index converges with durable state.
func (m *Manager) Rebuild(ctx context.Context) error {
	for _, credType := range domain.CredentialTypes() {
		submitted, err := m.jobs.ListSubmitted(ctx, credType)
		if err != nil {
			return domerrors.Wrap(err, domerrors.CodeInternal, "queue rebuild failed")
		}
		for _, j := range submitted {
			if err := m.queue.Enqueue(ctx, credType, j.ID, j.CreatedAt, j.SLADeadline); err != nil {
				return err
			}
		}
		m.metrics.SetQueueDepth(string(credType), int64(len(submitted)))
	}
	m.logger.Info("queue indexes rebuilt")
	return nil
}

func (m *Manager) observeDepth(ctx context.Context, credType domain.CredentialType) {
	depth, err := m.queue.Depth(ctx, credType)
	if err != nil {
		return
	}
	m.metrics.SetQueueDepth(string(credType), depth)
}
