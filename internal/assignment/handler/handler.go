// Package handler exposes queue inspection and the claim lease protocol.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"verza/internal/assignment"
	"verza/internal/job"
	"verza/pkg/domain"
	domerrors "verza/pkg/domain-errors"
	"verza/pkg/platform/httputil"
	"verza/pkg/requestcontext"
)

// Manager is the assignment surface the queue endpoints need.
type Manager interface {
	Claim(ctx context.Context, credType domain.CredentialType, verifierID domain.VerifierID) (*job.VerificationJob, error)
	Heartbeat(ctx context.Context, jobID domain.JobID, verifierID domain.VerifierID) (bool, time.Time, error)
	Release(ctx context.Context, jobID domain.JobID, verifierID domain.VerifierID) (*job.VerificationJob, error)
	Info(ctx context.Context, credType domain.CredentialType) (*assignment.QueueInfo, error)
}

// Handler handles queue and claim endpoints.
type Handler struct {
	logger *slog.Logger
	mgr    Manager
}

func New(mgr Manager, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, mgr: mgr}
}

// Register registers the assignment routes. The router must already carry the
// auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/queue/{credentialType}", h.handleQueueInfo)
	r.Post("/queue/{credentialType}/claim", h.handleClaim)
	r.Post("/jobs/{jobID}/heartbeat", h.handleHeartbeat)
	r.Post("/jobs/{jobID}/release", h.handleRelease)
}

func (h *Handler) handleQueueInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credType, err := domain.ParseCredentialType(chi.URLParam(r, "credentialType"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	info, err := h.mgr.Info(ctx, credType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, info)
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credType, err := domain.ParseCredentialType(chi.URLParam(r, "credentialType"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	verifierID, ok := verifierActor(w, r)
	if !ok {
		return
	}

	claimed, err := h.mgr.Claim(ctx, credType, verifierID)
	if err != nil {
		if domerrors.HasCode(err, domerrors.CodeNotFound) {
			// Empty queue is the common case, not an error worth logging.
			httputil.WriteError(w, err)
			return
		}
		h.logger.WarnContext(ctx, "claim failed",
			"request_id", requestcontext.RequestID(ctx),
			"credential_type", credType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, claimed)
}

type heartbeatResponse struct {
	Renewed   bool       `json:"renewed"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (h *Handler) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID, err := domain.ParseJobID(chi.URLParam(r, "jobID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	verifierID, ok := verifierActor(w, r)
	if !ok {
		return
	}

	renewed, expiresAt, err := h.mgr.Heartbeat(ctx, jobID, verifierID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := heartbeatResponse{Renewed: renewed}
	if renewed {
		resp.ExpiresAt = &expiresAt
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRelease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID, err := domain.ParseJobID(chi.URLParam(r, "jobID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	verifierID, ok := verifierActor(w, r)
	if !ok {
		return
	}

	released, err := h.mgr.Release(ctx, jobID, verifierID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, released)
}

func verifierActor(w http.ResponseWriter, r *http.Request) (domain.VerifierID, bool) {
	actor := requestcontext.Actor(r.Context())
	if actor.Role != domain.RoleVerifier {
		httputil.WriteError(w, domerrors.New(domerrors.CodeForbidden, "verifier role required"))
		return domain.VerifierID{}, false
	}
	return actor.VerifierID(), true
}
