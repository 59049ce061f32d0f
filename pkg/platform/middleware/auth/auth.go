package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"verza/internal/jwttoken"
	"verza/pkg/domain"
	domerrors "verza/pkg/domain-errors"
	"verza/pkg/platform/httputil"
	"verza/pkg/requestcontext"
)

// TokenValidator defines the interface for validating access tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token and injects the
// authenticated actor into the request context. Authorization decisions beyond
// authentication live in the services, which are the authority on who may
// claim, decide, or resolve.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				httputil.WriteError(w, domerrors.New(domerrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized request",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}

			actorID, err := uuid.Parse(claims.ActorID)
			if err != nil || actorID == uuid.Nil {
				httputil.WriteError(w, domerrors.New(domerrors.CodeUnauthorized, "invalid actor id in token"))
				return
			}
			role, err := domain.ParseRole(claims.Role)
			if err != nil {
				httputil.WriteError(w, domerrors.New(domerrors.CodeUnauthorized, "invalid role in token"))
				return
			}

			ctx = requestcontext.WithActor(ctx, requestcontext.ActorInfo{ID: actorID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
