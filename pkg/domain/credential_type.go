package domain

import domerrors "verza/pkg/domain-errors"

// CredentialType classifies what a verification job is checking. Each type
// carries its own checklist template and assignment queue.
type CredentialType string

const (
	CredentialIdentity   CredentialType = "identity"
	CredentialEducation  CredentialType = "education"
	CredentialEmployment CredentialType = "employment"
	CredentialFinancial  CredentialType = "financial"
	CredentialOther      CredentialType = "other"
)

// CredentialTypes lists every supported type in a stable order.
func CredentialTypes() []CredentialType {
	return []CredentialType{
		CredentialIdentity,
		CredentialEducation,
		CredentialEmployment,
		CredentialFinancial,
		CredentialOther,
	}
}

// ParseCredentialType validates a credential type from its string form.
func ParseCredentialType(raw string) (CredentialType, error) {
	switch CredentialType(raw) {
	case CredentialIdentity, CredentialEducation, CredentialEmployment,
		CredentialFinancial, CredentialOther:
		return CredentialType(raw), nil
	}
	return "", domerrors.Newf(domerrors.CodeInvalidInput, "unknown credential type %q", raw)
}
