// Package handler exposes per-job activity replay.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"verza/internal/activity"
	"verza/internal/job"
	"verza/internal/lifecycle"
	"verza/pkg/domain"
	domerrors "verza/pkg/domain-errors"
	"verza/pkg/platform/httputil"
	"verza/pkg/requestcontext"
)

const defaultPageSize = 100

// JobReader authorizes access: activity is visible to whoever may view the
// job.
type JobReader interface {
	GetJob(ctx context.Context, id domain.JobID, actor lifecycle.Actor) (*job.VerificationJob, error)
}

// Handler handles the activity replay endpoint.
type Handler struct {
	logger  *slog.Logger
	entries activity.Store
	jobs    JobReader
}

func New(entries activity.Store, jobs JobReader, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, entries: entries, jobs: jobs}
}

// Register registers the activity route. The router must already carry the
// auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/jobs/{jobID}/activity", h.handleList)
}

type listResponse struct {
	Entries []activity.Entry `json:"entries"`
	// NextAfterSeq is the cursor for the following page; echo it back as
	// after_seq to resume.
	NextAfterSeq int64 `json:"next_after_seq"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID, err := domain.ParseJobID(chi.URLParam(r, "jobID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	info := requestcontext.Actor(ctx)
	actor := lifecycle.Actor{ID: info.ID.String(), Role: info.Role}
	if _, err := h.jobs.GetJob(ctx, jobID, actor); err != nil {
		httputil.WriteError(w, err)
		return
	}

	afterSeq, err := queryInt64(r, "after_seq", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := queryInt64(r, "limit", defaultPageSize)
	if err != nil || limit <= 0 {
		httputil.WriteError(w, domerrors.New(domerrors.CodeInvalidInput, "limit must be a positive integer"))
		return
	}

	entries, err := h.entries.ListByJob(ctx, jobID, afterSeq, int(limit))
	if err != nil {
		h.logger.ErrorContext(ctx, "activity list failed",
			"request_id", requestcontext.RequestID(ctx),
			"job_id", jobID,
			"error", err,
		)
		httputil.WriteError(w, domerrors.Wrap(err, domerrors.CodeInternal, "failed to list activity"))
		return
	}

	resp := listResponse{Entries: entries, NextAfterSeq: afterSeq}
	if len(entries) > 0 {
		resp.NextAfterSeq = entries[len(entries)-1].Seq
	}
	if resp.Entries == nil {
		resp.Entries = []activity.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func queryInt64(r *http.Request, name string, fallback int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, domerrors.Newf(domerrors.CodeInvalidInput, "%s must be a non-negative integer", name)
	}
	return v, nil
}
