package handler

import (
	"strings"

	"verza/pkg/domain"
	domerrors "verza/pkg/domain-errors"
)

// SubmitJobRequest is the submission payload.
type SubmitJobRequest struct {
	DocumentRef    string `json:"document_ref"`
	CredentialType string `json:"credential_type"`
	Expedited      bool   `json:"expedited"`

	credType domain.CredentialType
}

func (r *SubmitJobRequest) Validate() error {
	if strings.TrimSpace(r.DocumentRef) == "" {
		return domerrors.New(domerrors.CodeInvalidInput, "document_ref is required")
	}
	credType, err := domain.ParseCredentialType(r.CredentialType)
	if err != nil {
		return err
	}
	r.credType = credType
	return nil
}

// DecisionRequest records an approve or reject.
type DecisionRequest struct {
	Outcome string `json:"outcome"`
	Notes   string `json:"notes"`
}

func (r *DecisionRequest) Validate() error {
	if r.Outcome != "approved" && r.Outcome != "rejected" {
		return domerrors.Newf(domerrors.CodeInvalidInput, "outcome must be approved or rejected, got %q", r.Outcome)
	}
	return nil
}

// ChecklistItemRequest flips one checklist item.
type ChecklistItemRequest struct {
	Satisfied *bool `json:"satisfied"`
}

func (r *ChecklistItemRequest) Validate() error {
	if r.Satisfied == nil {
		return domerrors.New(domerrors.CodeInvalidInput, "satisfied is required")
	}
	return nil
}
