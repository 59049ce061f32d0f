// Package handler exposes dispute filing and the admin resolution flow.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"verza/internal/dispute"
	"verza/internal/lifecycle"
	"verza/pkg/domain"
	domerrors "verza/pkg/domain-errors"
	"verza/pkg/platform/httputil"
	"verza/pkg/requestcontext"
)

// Service is the dispute surface the endpoints need.
type Service interface {
	File(ctx context.Context, jobID domain.JobID, actor lifecycle.Actor, reason string) (*dispute.Dispute, error)
	Get(ctx context.Context, id domain.DisputeID, actor lifecycle.Actor) (*dispute.Dispute, error)
	MarkUnderReview(ctx context.Context, id domain.DisputeID, actor lifecycle.Actor) (*dispute.Dispute, error)
	Resolve(ctx context.Context, id domain.DisputeID, actor lifecycle.Actor, res lifecycle.Resolution, notes string) (*dispute.Dispute, error)
	ListOpen(ctx context.Context, actor lifecycle.Actor) ([]*dispute.Dispute, error)
}

// Handler handles dispute endpoints.
type Handler struct {
	logger *slog.Logger
	svc    Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, svc: svc}
}

// Register registers the dispute routes. The router must already carry the
// auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/jobs/{jobID}/disputes", h.handleFile)
	r.Get("/disputes", h.handleListOpen)
	r.Get("/disputes/{disputeID}", h.handleGet)
	r.Post("/disputes/{disputeID}/review", h.handleMarkUnderReview)
	r.Post("/disputes/{disputeID}/resolution", h.handleResolve)
}

// FileDisputeRequest opens a dispute against a decided job.
type FileDisputeRequest struct {
	Reason string `json:"reason"`
}

func (r *FileDisputeRequest) Validate() error {
	if strings.TrimSpace(r.Reason) == "" {
		return domerrors.New(domerrors.CodeInvalidInput, "reason is required")
	}
	return nil
}

// ResolveDisputeRequest records the admin ruling.
type ResolveDisputeRequest struct {
	Resolution       string `json:"resolution"`
	AmountToVerifier int64  `json:"amount_to_verifier,omitempty"`
	Notes            string `json:"notes"`

	kind domain.ResolutionKind
}

func (r *ResolveDisputeRequest) Validate() error {
	kind, err := domain.ParseResolutionKind(r.Resolution)
	if err != nil {
		return err
	}
	if kind == domain.ResolutionPartialRefund && r.AmountToVerifier <= 0 {
		return domerrors.New(domerrors.CodeInvalidInput, "partial refund requires amount_to_verifier")
	}
	r.kind = kind
	return nil
}

func (h *Handler) handleFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID, err := domain.ParseJobID(chi.URLParam(r, "jobID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[FileDisputeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	filed, err := h.svc.File(ctx, jobID, actorFrom(ctx), req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "dispute filing rejected",
			"request_id", requestcontext.RequestID(ctx),
			"job_id", jobID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, filed)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	disputeID, ok := pathDisputeID(w, r)
	if !ok {
		return
	}

	d, err := h.svc.Get(ctx, disputeID, actorFrom(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleListOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	open, err := h.svc.ListOpen(ctx, actorFrom(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"disputes": open})
}

func (h *Handler) handleMarkUnderReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	disputeID, ok := pathDisputeID(w, r)
	if !ok {
		return
	}

	d, err := h.svc.MarkUnderReview(ctx, disputeID, actorFrom(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	disputeID, ok := pathDisputeID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ResolveDisputeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	resolved, err := h.svc.Resolve(ctx, disputeID, actorFrom(ctx), lifecycle.Resolution{
		Kind:             req.kind,
		AmountToVerifier: req.AmountToVerifier,
	}, req.Notes)
	if err != nil {
		h.logger.WarnContext(ctx, "dispute resolution rejected",
			"request_id", requestcontext.RequestID(ctx),
			"dispute_id", disputeID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resolved)
}

func actorFrom(ctx context.Context) lifecycle.Actor {
	info := requestcontext.Actor(ctx)
	return lifecycle.Actor{ID: info.ID.String(), Role: info.Role}
}

func pathDisputeID(w http.ResponseWriter, r *http.Request) (domain.DisputeID, bool) {
	disputeID, err := domain.ParseDisputeID(chi.URLParam(r, "disputeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.DisputeID{}, false
	}
	return disputeID, true
}
