// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services consume them. Keeping the package
// free of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	actor := requestcontext.Actor(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithActor(ctx, actor)
package requestcontext

import (
	"context"

	"github.com/google/uuid"

	"verza/pkg/domain"
)

// ActorInfo identifies the authenticated caller of an operation.
type ActorInfo struct {
	ID   uuid.UUID
	Role domain.Role
}

// IsZero reports whether no actor was authenticated.
func (a ActorInfo) IsZero() bool { return a.ID == uuid.Nil }

// VerifierID views the actor as a verifier identifier.
func (a ActorInfo) VerifierID() domain.VerifierID { return domain.VerifierID(a.ID) }

// RequesterID views the actor as a requester identifier.
func (a ActorInfo) RequesterID() domain.RequesterID { return domain.RequesterID(a.ID) }

// Context key types (unexported for encapsulation).
type (
	actorKey     struct{}
	requestIDKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyActor     = actorKey{}
	ContextKeyRequestID = requestIDKey{}
)

// Actor retrieves the authenticated actor from the context.
// Returns the zero value if no actor was set.
func Actor(ctx context.Context) ActorInfo {
	if actor, ok := ctx.Value(ContextKeyActor).(ActorInfo); ok {
		return actor
	}
	return ActorInfo{}
}

// WithActor injects an authenticated actor into the context.
func WithActor(ctx context.Context, actor ActorInfo) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}
