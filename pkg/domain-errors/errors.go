// Package domerrors defines the coded error taxonomy shared by all services.
//
// Stores and adapters return sentinel errors (pkg/platform/sentinel); services
// translate them into coded errors here so transports can map codes to status
// codes without inspecting error strings.
package domerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers. Codes are part of the API contract:
// the front end keys its retry/refresh behavior off them.
type Code string

const (
	// CodeInvalidInput marks malformed or missing request input.
	CodeInvalidInput Code = "invalid_input"
	// CodeUnauthorized marks requests with no authenticated actor.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an actor that may not perform this action on this job.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks an unknown job, dispute, or queue entry.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a claim already held by another verifier.
	CodeConflict Code = "conflict"
	// CodeConcurrency marks a stale-version write; callers refresh and retry.
	CodeConcurrency Code = "concurrency"
	// CodePrecondition marks an operation invalid for the job's current state
	// (incomplete checklist, illegal transition). Not retryable as-is.
	CodePrecondition Code = "precondition_failed"
	// CodeAdapter marks a failed escrow/document collaborator call. The
	// transition was not applied; the call is safe to retry.
	CodeAdapter Code = "adapter_error"
	// CodeInternal marks everything else. Details are never sent to clients.
	CodeInternal Code = "internal_error"
)

// Error carries a code, a caller-safe message, and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error with a caller-safe message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted caller-safe message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and caller-safe message to an underlying error.
// The cause is preserved for logs and errors.Is/As but never shown to clients.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or CodeInternal when err is uncoded.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the caller-safe message, or an empty string when uncoded.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
