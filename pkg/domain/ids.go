// Package domain holds the typed identifiers shared across the engine.
//
// IDs wrap uuid.UUID in distinct named types so a VerifierID can never be
// passed where a JobID is expected. Parsing enforces the trust-boundary
// invariant that IDs are valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	domerrors "verza/pkg/domain-errors"
)

type (
	// JobID identifies a verification job.
	JobID uuid.UUID
	// RequesterID identifies the party that submitted a job.
	RequesterID uuid.UUID
	// VerifierID identifies an independent verifier.
	VerifierID uuid.UUID
	// DisputeID identifies a dispute scoped to a job.
	DisputeID uuid.UUID
)

func (id JobID) String() string       { return uuid.UUID(id).String() }
func (id RequesterID) String() string { return uuid.UUID(id).String() }
func (id VerifierID) String() string  { return uuid.UUID(id).String() }
func (id DisputeID) String() string   { return uuid.UUID(id).String() }

func (id JobID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id RequesterID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id VerifierID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id DisputeID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps the canonical UUID form in JSON and query strings.

func (id JobID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id RequesterID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id VerifierID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id DisputeID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }

func (id *JobID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RequesterID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *VerifierID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DisputeID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }

// NewJobID mints a fresh job identifier.
func NewJobID() JobID { return JobID(uuid.New()) }

// NewDisputeID mints a fresh dispute identifier.
func NewDisputeID() DisputeID { return DisputeID(uuid.New()) }

func parseUUID(raw, what string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, domerrors.Newf(domerrors.CodeInvalidInput, "%s is required", what)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domerrors.Newf(domerrors.CodeInvalidInput, "%s must be a valid UUID", what)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, domerrors.Newf(domerrors.CodeInvalidInput, "%s must not be the nil UUID", what)
	}
	return parsed, nil
}

// ParseJobID parses and validates a job ID from its string form.
func ParseJobID(raw string) (JobID, error) {
	parsed, err := parseUUID(raw, "job id")
	return JobID(parsed), err
}

// ParseRequesterID parses and validates a requester ID from its string form.
func ParseRequesterID(raw string) (RequesterID, error) {
	parsed, err := parseUUID(raw, "requester id")
	return RequesterID(parsed), err
}

// ParseVerifierID parses and validates a verifier ID from its string form.
func ParseVerifierID(raw string) (VerifierID, error) {
	parsed, err := parseUUID(raw, "verifier id")
	return VerifierID(parsed), err
}

// ParseDisputeID parses and validates a dispute ID from its string form.
func ParseDisputeID(raw string) (DisputeID, error) {
	parsed, err := parseUUID(raw, "dispute id")
	return DisputeID(parsed), err
}
