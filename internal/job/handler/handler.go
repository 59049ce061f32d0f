// Package handler exposes job submission, inspection, and review over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"verza/internal/job"
	"verza/internal/lifecycle"
	"verza/pkg/domain"
	domerrors "verza/pkg/domain-errors"
	"verza/pkg/platform/httputil"
	"verza/pkg/requestcontext"
)

// Service is the lifecycle surface the job endpoints need.
type Service interface {
	Submit(ctx context.Context, req lifecycle.SubmitRequest) (*job.VerificationJob, error)
	GetJob(ctx context.Context, id domain.JobID, actor lifecycle.Actor) (*job.VerificationJob, error)
	StartReview(ctx context.Context, jobID domain.JobID, verifierID domain.VerifierID) (*job.VerificationJob, error)
	UpdateChecklistItem(ctx context.Context, jobID domain.JobID, verifierID domain.VerifierID, itemID string, satisfied bool) (*job.VerificationJob, error)
	Decide(ctx context.Context, jobID domain.JobID, verifierID domain.VerifierID, outcome job.Outcome, notes string) (*job.VerificationJob, error)
}

// Handler handles job endpoints.
type Handler struct {
	logger *slog.Logger
	svc    Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, svc: svc}
}

// Register registers the job routes. The router must already carry the auth
// middleware; handlers read the actor from context.
func (h *Handler) Register(r chi.Router) {
	r.Post("/jobs", h.handleSubmit)
	r.Get("/jobs/{jobID}", h.handleGet)
	r.Post("/jobs/{jobID}/review", h.handleStartReview)
	r.Patch("/jobs/{jobID}/checklist/{itemID}", h.handleChecklistItem)
	r.Post("/jobs/{jobID}/decision", h.handleDecide)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	if actor.Role != domain.RoleRequester {
		httputil.WriteError(w, domerrors.New(domerrors.CodeForbidden, "only requesters submit jobs"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmitJobRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	created, err := h.svc.Submit(ctx, lifecycle.SubmitRequest{
		RequesterID:    actor.RequesterID(),
		DocumentRef:    req.DocumentRef,
		CredentialType: req.credType,
		Expedited:      req.Expedited,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submit failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID, ok := pathJobID(w, r)
	if !ok {
		return
	}

	j, err := h.svc.GetJob(ctx, jobID, actorFrom(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, j)
}

func (h *Handler) handleStartReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID, verifierID, ok := verifierRequest(w, r)
	if !ok {
		return
	}

	updated, err := h.svc.StartReview(ctx, jobID, verifierID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleChecklistItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID, verifierID, ok := verifierRequest(w, r)
	if !ok {
		return
	}
	itemID := chi.URLParam(r, "itemID")

	req, ok := httputil.DecodeAndPrepare[ChecklistItemRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	updated, err := h.svc.UpdateChecklistItem(ctx, jobID, verifierID, itemID, *req.Satisfied)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID, verifierID, ok := verifierRequest(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	updated, err := h.svc.Decide(ctx, jobID, verifierID, job.Outcome(req.Outcome), req.Notes)
	if err != nil {
		h.logger.WarnContext(ctx, "decision rejected",
			"request_id", requestcontext.RequestID(ctx),
			"job_id", jobID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func actorFrom(ctx context.Context) lifecycle.Actor {
	info := requestcontext.Actor(ctx)
	return lifecycle.Actor{ID: info.ID.String(), Role: info.Role}
}

func pathJobID(w http.ResponseWriter, r *http.Request) (domain.JobID, bool) {
	jobID, err := domain.ParseJobID(chi.URLParam(r, "jobID"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.JobID{}, false
	}
	return jobID, true
}

// verifierRequest parses the job ID and requires a verifier actor.
func verifierRequest(w http.ResponseWriter, r *http.Request) (domain.JobID, domain.VerifierID, bool) {
	jobID, ok := pathJobID(w, r)
	if !ok {
		return domain.JobID{}, domain.VerifierID{}, false
	}
	actor := requestcontext.Actor(r.Context())
	if actor.Role != domain.RoleVerifier {
		httputil.WriteError(w, domerrors.New(domerrors.CodeForbidden, "verifier role required"))
		return domain.JobID{}, domain.VerifierID{}, false
	}
	return jobID, actor.VerifierID(), true
}
