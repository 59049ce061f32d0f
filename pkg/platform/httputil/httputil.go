// Package httputil centralizes JSON encoding and the error-code-to-status
// mapping so handlers stay thin.
package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	domerrors "verza/pkg/domain-errors"
)

// Validatable is implemented by request structs that validate and parse
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError maps a coded error onto an HTTP status and JSON body. Internal
// and adapter errors omit the description so infrastructure details never
// leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := domerrors.CodeOf(err)
	body := errorBody{Error: string(code)}

	switch code {
	case domerrors.CodeInternal, domerrors.CodeAdapter:
		// description withheld
	default:
		body.Description = domerrors.MessageOf(err)
	}

	WriteJSON(w, statusFor(code), body)
}

func statusFor(code domerrors.Code) int {
	switch code {
	case domerrors.CodeInvalidInput:
		return http.StatusBadRequest
	case domerrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case domerrors.CodeForbidden:
		return http.StatusForbidden
	case domerrors.CodeNotFound:
		return http.StatusNotFound
	case domerrors.CodeConflict, domerrors.CodeConcurrency:
		return http.StatusConflict
	case domerrors.CodePrecondition:
		return http.StatusPreconditionFailed
	case domerrors.CodeAdapter:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DecodeAndPrepare decodes the request body into T and runs its Validate
// method. On failure it writes the error response and returns ok=false so the
// handler can simply return.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (PT, bool) {
	req := PT(new(T))
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		if logger != nil {
			logger.DebugContext(ctx, "request decode failed",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, domerrors.New(domerrors.CodeInvalidInput, "request body must be valid JSON"))
		return nil, false
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
