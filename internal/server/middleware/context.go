package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/complaintdesk/internal/domain"
)

type contextKey string

const (
	ContextKeyUserID contextKey = "user_id"
	ContextKeyActor  contextKey = "actor"
)

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyUserID).(uuid.UUID)
	return v, ok
}

// ActorFromContext returns the actor resolved by ResolveActor. Requests that
// never passed through it yield an unauthenticated actor.
func ActorFromContext(ctx context.Context) domain.Actor {
	v, _ := ctx.Value(ContextKeyActor).(domain.Actor)
	return v
}

// WithActor stores a resolved actor on the context.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// TenantIDFromContext returns the tenant of a configured actor.
func TenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	actor := ActorFromContext(ctx)
	if !actor.Configured() {
		return uuid.Nil, false
	}
	return actor.TenantID(), true
}
