package domain

import domerrors "verza/pkg/domain-errors"

// ResolutionKind is the admin ruling that closes a dispute.
type ResolutionKind string

const (
	// ResolutionFullRefund returns the full held amount to the requester.
	ResolutionFullRefund ResolutionKind = "full_refund"
	// ResolutionFullPayment pays the verifier as if the decision stood.
	ResolutionFullPayment ResolutionKind = "full_payment"
	// ResolutionPartialRefund splits the held amount between the parties.
	ResolutionPartialRefund ResolutionKind = "partial_refund"
	// ResolutionReverify sends the job back through verification with a
	// clean checklist; escrow stays frozen until the new decision.
	ResolutionReverify ResolutionKind = "reverify"
)

// ParseResolutionKind validates a wire value.
func ParseResolutionKind(raw string) (ResolutionKind, error) {
	switch ResolutionKind(raw) {
	case ResolutionFullRefund, ResolutionFullPayment, ResolutionPartialRefund, ResolutionReverify:
		return ResolutionKind(raw), nil
	}
	return "", domerrors.Newf(domerrors.CodeInvalidInput, "unknown resolution kind %q", raw)
}
