package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/complaintdesk/internal/domain"
)

// ActorResolver binds an authenticated user to their tenant identity.
type ActorResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (domain.Actor, error)
}

// ResolveActor must run after Auth. Users without an identity still pass
// through as unconfigured actors; the service layer decides what they may do.
func ResolveActor(resolver ActorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, _ := UserIDFromContext(r.Context())

			actor, err := resolver.Resolve(r.Context(), userID)
			switch {
			case errors.Is(err, domain.ErrUnauthenticated):
				http.Error(w, `{"title":"Unauthorized","status":401,"detail":"authentication required"}`, http.StatusUnauthorized)
				return
			case err != nil:
				log.Error().Err(err).Str("user_id", userID.String()).Msg("middleware: resolve actor")
				http.Error(w, `{"title":"Internal Server Error","status":500,"detail":"internal error"}`, http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}
