package assignment

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"verza/internal/assignment/metrics"
	"verza/internal/clock"
	"verza/internal/job"
	"verza/internal/lifecycle"
	domerrors "verza/pkg/domain-errors"
)

// sweepConcurrency bounds parallel lifecycle calls per sweep pass.
const sweepConcurrency = 8

// Sweeper is the background loop that makes verifier failure self-healing:
// expired claims go back to the queue and overdue jobs get their SLA flag
// without anyone calling in.
type Sweeper struct {
	jobs     job.Store
	lc       *lifecycle.Service
	clk      clock.Clock
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewSweeper(jobs job.Store, lc *lifecycle.Service, clk clock.Clock, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *Sweeper {
	return &Sweeper{jobs: jobs, lc: lc, clk: clk, interval: interval, logger: logger, metrics: m}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticks := s.clk.Tick(s.interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one pass. Exported so tests and operators can trigger it
// directly.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.clk.Now()
	expired := s.reapExpiredClaims(ctx, now)
	breached := s.flagSLABreaches(ctx, now)
	s.metrics.ObserveSweep(expired, breached)
	if expired > 0 || breached > 0 {
		s.logger.InfoContext(ctx, "sweep pass complete",
			"expired_claims", expired,
			"sla_breaches", breached,
		)
	}
}

func (s *Sweeper) reapExpiredClaims(ctx context.Context, now time.Time) int {
	stale, err := s.jobs.ListExpiredClaims(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "listing expired claims failed", "error", err)
		return 0
	}

	var reaped int
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	results := make(chan struct{}, len(stale))
	for _, j := range stale {
		jobID := j.ID
		g.Go(func() error {
			if _, err := s.lc.Expire(gctx, jobID); err != nil {
				// A renewal or decision between list and expire wins the
				// race; only log real failures.
				if lifecycle.IsLeaseStillLive(err) || domerrors.HasCode(err, domerrors.CodePrecondition) {
					return nil
				}
				s.logger.ErrorContext(gctx, "claim expiry failed",
					"job_id", jobID,
					"error", err,
				)
				return nil
			}
			results <- struct{}{}
			return nil
		})
	}
	_ = g.Wait()
	close(results)
	for range results {
		reaped++
	}
	return reaped
}

func (s *Sweeper) flagSLABreaches(ctx context.Context, now time.Time) int {
	overdue, err := s.jobs.ListSLABreaches(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "listing SLA breaches failed", "error", err)
		return 0
	}

	var flagged int
	for _, j := range overdue {
		updated, err := s.lc.MarkSLABreached(ctx, j.ID)
		if err != nil {
			s.logger.ErrorContext(ctx, "SLA breach flag failed",
				"job_id", j.ID,
				"error", err,
			)
			continue
		}
		if updated != nil {
			flagged++
		}
	}
	return flagged
}
