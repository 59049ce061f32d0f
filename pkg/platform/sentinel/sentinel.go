package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and adapters return these
// (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrVersionMismatch: compare-and-swap saw a stale version
// - ErrConflict: resource is exclusively held by someone else
// - ErrExpired: lease or window has elapsed
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrAlreadyFinalized: escrow already settled by a different terminal op
// - ErrUnavailable: collaborator temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound         = errors.New("not found")
	ErrVersionMismatch  = errors.New("version mismatch")
	ErrConflict         = errors.New("conflict")
	ErrExpired          = errors.New("expired")
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyFinalized = errors.New("already finalized")
	ErrUnavailable      = errors.New("unavailable")
)
