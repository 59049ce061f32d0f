// Package dispute is the overlay record for challenged decisions. The job's
// own status transitions live in the lifecycle service; this package owns the
// dispute document and the admin resolution flow.
package dispute

import (
	"time"

	"verza/pkg/domain"
)

// Status is the dispute's own lifecycle, independent of the job status.
type Status string

const (
	StatusOpen        Status = "open"
	StatusUnderReview Status = "under_review"
	StatusResolved    Status = "resolved"
)

// Resolution is the recorded admin ruling.
type Resolution struct {
	Kind domain.ResolutionKind `json:"kind"`
	// AmountToVerifier is the verifier's share in cents for a partial
	// refund; zero for the other kinds.
	AmountToVerifier int64     `json:"amount_to_verifier,omitempty"`
	Notes            string    `json:"notes"`
	ResolvedBy       string    `json:"resolved_by"`
	ResolvedAt       time.Time `json:"resolved_at"`
}

// Dispute is one challenge against a decided job. A job carries at most one
// unresolved dispute at a time; once resolved, a re-decided job can be
// disputed again, so a job may accumulate several resolved records.
type Dispute struct {
	ID          domain.DisputeID `json:"id"`
	JobID       domain.JobID     `json:"job_id"`
	FiledBy     string           `json:"filed_by"`
	FiledByRole domain.Role      `json:"filed_by_role"`
	Reason      string           `json:"reason"`
	Status      Status           `json:"status"`
	Resolution  *Resolution      `json:"resolution,omitempty"`
	FiledAt     time.Time        `json:"filed_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
