package checklist

import (
	"strings"

	"verza/internal/job"
	domerrors "verza/pkg/domain-errors"
)

// Engine enforces which checklist state must be reached before a decision is
// accepted. Pure domain logic, no I/O.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// ApproveGate fails unless every checklist item is satisfied. The message
// names the unsatisfied items so the verifier knows what is left.
func (e *Engine) ApproveGate(items []job.ChecklistItem) error {
	var unsatisfied []string
	for _, it := range items {
		if !it.Satisfied {
			unsatisfied = append(unsatisfied, it.ItemID)
		}
	}
	if len(unsatisfied) > 0 {
		return domerrors.Newf(domerrors.CodePrecondition,
			"checklist incomplete: %s", strings.Join(unsatisfied, ", "))
	}
	return nil
}

// RejectGate requires a stated reason; rejection has no checklist precondition.
func (e *Engine) RejectGate(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return domerrors.New(domerrors.CodePrecondition, "rejection requires a reason")
	}
	return nil
}
