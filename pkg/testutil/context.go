package testutil

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"verza/pkg/domain"
	"verza/pkg/requestcontext"
)

// WithActor adds an authenticated actor to the request context. This simulates
// what the auth middleware would do for authenticated requests. Invalid IDs
// are silently ignored.
func WithActor(req *http.Request, actorID string, role domain.Role) *http.Request {
	parsed, err := uuid.Parse(actorID)
	if err != nil {
		return req
	}
	ctx := requestcontext.WithActor(req.Context(), requestcontext.ActorInfo{ID: parsed, Role: role})
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
