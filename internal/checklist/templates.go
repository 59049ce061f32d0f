// Package checklist owns the per-credential-type review requirements and the
// gate that a decision must pass.
package checklist

import (
	"verza/internal/job"
	"verza/pkg/domain"
)

type templateItem struct {
	id    string
	label string
}

// templates is fixed per credential type. Items are ordered; order is part of
// the review UX contract and is preserved on the job record.
var templates = map[domain.CredentialType][]templateItem{
	domain.CredentialIdentity: {
		{"photo_matches", "Photo matches profile"},
		{"not_expired", "Document is not expired"},
		{"no_tampering", "No signs of tampering"},
		{"data_consistent", "Personal data is internally consistent"},
		{"issuer_recognized", "Issuing authority is recognized"},
	},
	domain.CredentialEducation: {
		{"institution_accredited", "Institution is accredited"},
		{"award_confirmed", "Award confirmed with registrar"},
		{"dates_consistent", "Enrollment dates are consistent"},
		{"no_tampering", "No signs of tampering"},
	},
	domain.CredentialEmployment: {
		{"employer_exists", "Employer exists and is reachable"},
		{"tenure_confirmed", "Tenure confirmed with employer"},
		{"role_matches", "Role matches the stated position"},
		{"no_tampering", "No signs of tampering"},
	},
	domain.CredentialFinancial: {
		{"statement_authentic", "Statement is authentic"},
		{"institution_recognized", "Financial institution is recognized"},
		{"figures_consistent", "Figures are internally consistent"},
		{"recent_enough", "Statement is recent enough"},
	},
	domain.CredentialOther: {
		{"document_legible", "Document is legible"},
		{"source_verified", "Source verified"},
		{"no_tampering", "No signs of tampering"},
	},
}

// TemplateFor returns a fresh, unsatisfied checklist for a credential type.
func TemplateFor(credType domain.CredentialType) []job.ChecklistItem {
	items := templates[credType]
	out := make([]job.ChecklistItem, len(items))
	for i, it := range items {
		out[i] = job.ChecklistItem{ItemID: it.id, Label: it.label}
	}
	return out
}
