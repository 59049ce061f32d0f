package activity

import (
	"context"
	"log/slog"
)

// Recorder is the single write path for activity entries. It persists each
// entry and hands it to the background worker for external fan-out. Append
// failures surface to the caller; fan-out is best-effort and never blocks a
// transition.
type Recorder struct {
	store  Store
	inbox  chan<- Entry
	logger *slog.Logger
}

func NewRecorder(store Store, inbox chan<- Entry, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, inbox: inbox, logger: logger}
}

func (r *Recorder) Record(ctx context.Context, entry Entry) (Entry, error) {
	appended, err := r.store.Append(ctx, entry)
	if err != nil {
		return Entry{}, err
	}
	if r.inbox != nil {
		select {
		case r.inbox <- appended:
		default:
			r.logger.WarnContext(ctx, "activity fan-out inbox full, dropping event",
				"job_id", appended.JobID,
				"seq", appended.Seq,
			)
		}
	}
	return appended, nil
}
