// Package activity is the append-only event stream per job. One entry per
// lifecycle transition; entries are never mutated or deleted. For a single
// job the entry order equals the linearization order of successful
// compare-and-swap calls.
package activity

import (
	"time"

	"verza/pkg/domain"
)

// Event names the transition that produced an entry.
type Event string

const (
	EventSubmitted       Event = "submitted"
	EventClaimed         Event = "claimed"
	EventReviewStarted   Event = "review_started"
	EventChecklistUpdate Event = "checklist_updated"
	EventDecided         Event = "decided"
	EventClaimReleased   Event = "claim_released"
	EventClaimExpired    Event = "claim_expired"
	EventDisputeFiled    Event = "dispute_filed"
	EventDisputeResolved Event = "dispute_resolved"
	EventSLABreached     Event = "sla_breached"
)

// Entry is one immutable record in a job's activity log.
type Entry struct {
	Seq       int64             `json:"seq"`
	JobID     domain.JobID      `json:"job_id"`
	Event     Event             `json:"event"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Actor     string            `json:"actor"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
