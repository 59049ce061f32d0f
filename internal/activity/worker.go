package activity

import (
	"context"
	"log/slog"
)

// Publisher delivers activity entries to an external sink (notification
// delivery transport is out of scope; Kafka is the handoff point).
type Publisher interface {
	Publish(ctx context.Context, entry Entry) error
}

// Worker consumes activity entries from a channel and publishes them. It
// keeps background processing testable without wiring broker implementations
// into the lifecycle service.
type Worker struct {
	publisher Publisher
	inbox     <-chan Entry
	logger    *slog.Logger
}

func NewWorker(publisher Publisher, inbox <-chan Entry, logger *slog.Logger) *Worker {
	return &Worker{publisher: publisher, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.inbox:
			if err := w.publisher.Publish(ctx, entry); err != nil {
				w.logger.ErrorContext(ctx, "activity publish failed",
					"job_id", entry.JobID,
					"seq", entry.Seq,
					"error", err,
				)
			}
		}
	}
}
