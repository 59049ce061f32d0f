package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verza/internal/job"
	"verza/internal/lifecycle"
	"verza/pkg/domain"
	domerrors "verza/pkg/domain-errors"
	"verza/pkg/testutil"
)

// stubService records the last call and replies with canned results.
type stubService struct {
	submitReq lifecycle.SubmitRequest
	submitted *job.VerificationJob
	itemID    string
	satisfied bool
	err       error
}

func (s *stubService) Submit(_ context.Context, req lifecycle.SubmitRequest) (*job.VerificationJob, error) {
	s.submitReq = req
	return s.submitted, s.err
}

func (s *stubService) GetJob(_ context.Context, id domain.JobID, _ lifecycle.Actor) (*job.VerificationJob, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &job.VerificationJob{ID: id, Status: job.StatusSubmitted}, nil
}

func (s *stubService) StartReview(_ context.Context, jobID domain.JobID, _ domain.VerifierID) (*job.VerificationJob, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &job.VerificationJob{ID: jobID, Status: job.StatusInReview}, nil
}

func (s *stubService) UpdateChecklistItem(_ context.Context, jobID domain.JobID, _ domain.VerifierID, itemID string, satisfied bool) (*job.VerificationJob, error) {
	s.itemID = itemID
	s.satisfied = satisfied
	if s.err != nil {
		return nil, s.err
	}
	return &job.VerificationJob{ID: jobID, Status: job.StatusInReview}, nil
}

func (s *stubService) Decide(_ context.Context, jobID domain.JobID, _ domain.VerifierID, _ job.Outcome, _ string) (*job.VerificationJob, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &job.VerificationJob{ID: jobID, Status: job.StatusCompleted}, nil
}

func newJobRouter(svc Service) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return r
}

func jsonBody(t *testing.T, payload any) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestSubmitValidation(t *testing.T) {
	svc := &stubService{submitted: &job.VerificationJob{ID: domain.NewJobID()}}
	router := newJobRouter(svc)
	requesterID := uuid.NewString()

	tests := []struct {
		name     string
		payload  map[string]any
		wantCode int
	}{
		{
			name:     "valid submission",
			payload:  map[string]any{"document_ref": "doc-1", "credential_type": "identity", "expedited": true},
			wantCode: http.StatusCreated,
		},
		{
			name:     "unknown credential type",
			payload:  map[string]any{"document_ref": "doc-1", "credential_type": "astrology"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing document ref",
			payload:  map[string]any{"credential_type": "identity"},
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/jobs", jsonBody(t, tc.payload))
			req.Header.Set("Content-Type", "application/json")
			req = testutil.WithActor(req, requesterID, domain.RoleRequester)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code, rec.Body.String())
		})
	}

	assert.Equal(t, domain.CredentialIdentity, svc.submitReq.CredentialType)
	assert.True(t, svc.submitReq.Expedited)
	assert.Equal(t, requesterID, svc.submitReq.RequesterID.String())
}

func TestSubmitRequiresRequesterRole(t *testing.T) {
	router := newJobRouter(&stubService{})

	req := httptest.NewRequest(http.MethodPost, "/jobs", jsonBody(t, map[string]any{
		"document_ref":    "doc-1",
		"credential_type": "identity",
	}))
	req.Header.Set("Content-Type", "application/json")
	req = testutil.WithActor(req, uuid.NewString(), domain.RoleVerifier)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPathJobIDValidation(t *testing.T) {
	router := newJobRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/jobs/not-a-uuid", nil)
	req = testutil.WithActor(req, uuid.NewString(), domain.RoleRequester)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChecklistItemRequiresExplicitValue(t *testing.T) {
	svc := &stubService{}
	router := newJobRouter(svc)
	jobID := domain.NewJobID()
	verifierID := uuid.NewString()

	req := httptest.NewRequest(http.MethodPatch, "/jobs/"+jobID.String()+"/checklist/doc_legible", jsonBody(t, map[string]any{}))
	req.Header.Set("Content-Type", "application/json")
	req = testutil.WithActor(req, verifierID, domain.RoleVerifier)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "satisfied must be present")

	req = httptest.NewRequest(http.MethodPatch, "/jobs/"+jobID.String()+"/checklist/doc_legible", jsonBody(t, map[string]any{"satisfied": false}))
	req.Header.Set("Content-Type", "application/json")
	req = testutil.WithActor(req, verifierID, domain.RoleVerifier)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "doc_legible", svc.itemID)
	assert.False(t, svc.satisfied)
}

func TestServiceErrorsMapToStatusCodes(t *testing.T) {
	jobID := domain.NewJobID()
	verifierID := uuid.NewString()

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"precondition", domerrors.New(domerrors.CodePrecondition, "checklist incomplete"), http.StatusPreconditionFailed},
		{"forbidden", domerrors.New(domerrors.CodeForbidden, "job is claimed by another verifier"), http.StatusForbidden},
		{"not found", domerrors.New(domerrors.CodeNotFound, "job not found"), http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := newJobRouter(&stubService{err: tc.err})

			req := httptest.NewRequest(http.MethodPost, "/jobs/"+jobID.String()+"/decision", jsonBody(t, map[string]any{
				"outcome": "approved",
			}))
			req.Header.Set("Content-Type", "application/json")
			req = testutil.WithActor(req, verifierID, domain.RoleVerifier)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code)

			var body struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

