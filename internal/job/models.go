package job

import (
	"time"

	"verza/internal/document"
	"verza/internal/escrow"
	"verza/pkg/domain"
	domerrors "verza/pkg/domain-errors"
)

// Status is the lifecycle state of a verification job.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusClaimed   Status = "claimed"
	StatusInReview  Status = "in_review"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
	StatusDisputed  Status = "disputed"
)

// transitions is the authoritative edge set. Everything else about a
// transition (guards, escrow effects) lives in the lifecycle service; this map
// only answers "is this edge in the table at all".
var transitions = map[Status][]Status{
	StatusSubmitted: {StatusClaimed},
	StatusClaimed:   {StatusInReview, StatusSubmitted},
	StatusInReview:  {StatusCompleted, StatusRejected, StatusSubmitted},
	StatusCompleted: {StatusDisputed},
	StatusRejected:  {StatusDisputed},
	StatusDisputed:  {StatusCompleted, StatusRejected, StatusSubmitted},
}

// CanTransitionTo reports whether the edge exists in the transition table.
func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the job has a recorded outcome. Terminal jobs are
// immutable except through the dispute overlay.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// Outcome is a verifier's decision on a job.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

// Claim is the mutual-exclusion token held by the verifier working a job. It
// is a lease, not a permanent assignment: expiry makes verifier failure
// self-healing without operator intervention.
type Claim struct {
	VerifierID domain.VerifierID `json:"verifier_id"`
	ClaimedAt  time.Time         `json:"claimed_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// ChecklistItem is one review requirement. The set is fixed per credential
// type at submission.
type ChecklistItem struct {
	ItemID    string `json:"item_id"`
	Label     string `json:"label"`
	Satisfied bool   `json:"satisfied"`
}

// PriceQuote is fixed at submission. Amounts are cents; the platform fee is
// basis points applied by the ledger at payout.
type PriceQuote struct {
	BaseFee            int64 `json:"base_fee"`
	ExpeditedSurcharge int64 `json:"expedited_surcharge"`
	PlatformFeeBps     int64 `json:"platform_fee_bps"`
}

// Total is the amount held in escrow for the job.
func (q PriceQuote) Total() int64 { return q.BaseFee + q.ExpeditedSurcharge }

// Decision records the terminal review outcome.
type Decision struct {
	Outcome   Outcome           `json:"outcome"`
	Notes     string            `json:"notes"`
	DecidedAt time.Time         `json:"decided_at"`
	DecidedBy domain.VerifierID `json:"decided_by"`
}

// VerificationJob is one verification request.
//
// Invariants:
//   - At most one active claim; Claim != nil implies Status ∈ {claimed, in_review}
//   - Decision != nil iff Status ∈ {completed, rejected} (or disputed over a terminal outcome)
//   - EscrowRef is set from submission until settlement; one terminal ledger op per settlement epoch
//   - Version must match on every write; stale writes are rejected, never merged
//
// Jobs are created on submission (after the escrow hold succeeds), mutated
// only through the lifecycle service, and never physically deleted.
type VerificationJob struct {
	ID                 domain.JobID          `json:"id"`
	RequesterID        domain.RequesterID    `json:"requester_id"`
	DocumentRef        document.Ref          `json:"document_ref"`
	CredentialType     domain.CredentialType `json:"credential_type"`
	Status             Status                `json:"status"`
	AssignedVerifierID *domain.VerifierID    `json:"assigned_verifier_id,omitempty"`
	Claim              *Claim                `json:"claim,omitempty"`
	Checklist          []ChecklistItem       `json:"checklist"`
	PriceQuote         PriceQuote            `json:"price_quote"`
	EscrowRef          escrow.Ref            `json:"escrow_ref"`
	Decision           *Decision             `json:"decision,omitempty"`
	DisputeRef         *domain.DisputeID     `json:"dispute_ref,omitempty"`
	SLADeadline        time.Time             `json:"sla_deadline"`
	SLABreached        bool                  `json:"sla_breached"`
	Version            int64                 `json:"version"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// IsClaimedBy reports whether verifierID holds the current claim.
func (j *VerificationJob) IsClaimedBy(verifierID domain.VerifierID) bool {
	return j.Claim != nil && j.Claim.VerifierID == verifierID
}

// ClaimExpired reports whether the lease has elapsed.
func (j *VerificationJob) ClaimExpired(now time.Time) bool {
	return j.Claim != nil && j.Claim.ExpiresAt.Before(now)
}

// CanClaim checks the submitted → claimed guard.
func (j *VerificationJob) CanClaim() error {
	if j.Status != StatusSubmitted {
		return domerrors.Newf(domerrors.CodePrecondition, "job is %s, not claimable", j.Status)
	}
	if j.Claim != nil {
		return domerrors.New(domerrors.CodeConflict, "job already has an active claim")
	}
	return nil
}

// ApplyClaim attaches the claim token and moves the job to claimed.
func (j *VerificationJob) ApplyClaim(verifierID domain.VerifierID, now time.Time, ttl time.Duration) {
	j.Status = StatusClaimed
	j.Claim = &Claim{VerifierID: verifierID, ClaimedAt: now, ExpiresAt: now.Add(ttl)}
	j.AssignedVerifierID = &verifierID
	j.UpdatedAt = now
}

// CanStartReview checks the claimed → in_review guard.
func (j *VerificationJob) CanStartReview(verifierID domain.VerifierID) error {
	if j.Status != StatusClaimed {
		return domerrors.Newf(domerrors.CodePrecondition, "job is %s, review cannot start", j.Status)
	}
	if !j.IsClaimedBy(verifierID) {
		return domerrors.New(domerrors.CodeForbidden, "job is claimed by another verifier")
	}
	return nil
}

// ApplyStartReview moves the job to in_review. No escrow change.
func (j *VerificationJob) ApplyStartReview(now time.Time) {
	j.Status = StatusInReview
	j.UpdatedAt = now
}

// CanUpdateChecklist gates checklist mutation to the current claimant while
// the job is being worked.
func (j *VerificationJob) CanUpdateChecklist(verifierID domain.VerifierID) error {
	if j.Status != StatusClaimed && j.Status != StatusInReview {
		return domerrors.Newf(domerrors.CodePrecondition, "checklist is frozen while job is %s", j.Status)
	}
	if !j.IsClaimedBy(verifierID) {
		return domerrors.New(domerrors.CodeForbidden, "only the current claimant may update the checklist")
	}
	return nil
}

// SetChecklistItem flips one item's satisfied flag.
func (j *VerificationJob) SetChecklistItem(itemID string, satisfied bool, now time.Time) error {
	for i := range j.Checklist {
		if j.Checklist[i].ItemID == itemID {
			j.Checklist[i].Satisfied = satisfied
			j.UpdatedAt = now
			return nil
		}
	}
	return domerrors.Newf(domerrors.CodeNotFound, "checklist item %q not found", itemID)
}

// CanDecide checks the in_review → terminal guard common to both outcomes.
func (j *VerificationJob) CanDecide(verifierID domain.VerifierID) error {
	if j.Status != StatusInReview {
		return domerrors.Newf(domerrors.CodePrecondition, "job is %s, not in review", j.Status)
	}
	if !j.IsClaimedBy(verifierID) {
		return domerrors.New(domerrors.CodeForbidden, "only the current claimant may decide")
	}
	return nil
}

// ApplyDecision records the outcome, clears the claim, and moves the job to
// its terminal state.
func (j *VerificationJob) ApplyDecision(outcome Outcome, notes string, verifierID domain.VerifierID, now time.Time) {
	j.Decision = &Decision{Outcome: outcome, Notes: notes, DecidedAt: now, DecidedBy: verifierID}
	j.Claim = nil
	if outcome == OutcomeApproved {
		j.Status = StatusCompleted
	} else {
		j.Status = StatusRejected
	}
	j.UpdatedAt = now
}

// CanRequeue checks the claimed/in_review → submitted edge used by both
// voluntary release and involuntary expiry.
func (j *VerificationJob) CanRequeue() error {
	if j.Status != StatusClaimed && j.Status != StatusInReview {
		return domerrors.Newf(domerrors.CodePrecondition, "job is %s, nothing to release", j.Status)
	}
	return nil
}

// ApplyRequeue clears the claim and returns the job to submitted.
func (j *VerificationJob) ApplyRequeue(now time.Time) {
	j.Status = StatusSubmitted
	j.Claim = nil
	j.AssignedVerifierID = nil
	j.UpdatedAt = now
}

// ApplyDisputeOpened parks the job in disputed with a back-reference.
func (j *VerificationJob) ApplyDisputeOpened(disputeID domain.DisputeID, now time.Time) {
	j.Status = StatusDisputed
	j.DisputeRef = &disputeID
	j.UpdatedAt = now
}

// ApplyResolutionOutcome re-enters a terminal state after a dispute resolution.
func (j *VerificationJob) ApplyResolutionOutcome(to Status, now time.Time) {
	j.Status = to
	j.UpdatedAt = now
}

// ApplyReverify clears the decision and checklist satisfaction so the next
// verifier starts clean, and re-submits the job.
func (j *VerificationJob) ApplyReverify(now time.Time) {
	j.Status = StatusSubmitted
	j.Decision = nil
	j.AssignedVerifierID = nil
	j.Claim = nil
	for i := range j.Checklist {
		j.Checklist[i].Satisfied = false
	}
	j.UpdatedAt = now
}
