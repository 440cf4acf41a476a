// Package identity resolves authenticated users to tenant-scoped actors.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/complaintdesk/internal/domain"
)

// Cache holds identities, which never change once provisioned. Tenant
// activity is not cached. Entries are not evicted: an identity deleted
// directly in the database stays usable until its TTL expires.
type Cache interface {
	GetIdentity(ctx context.Context, userID uuid.UUID) (*domain.Identity, bool, error)
	SetIdentity(ctx context.Context, id *domain.Identity, ttl time.Duration) error
}

type Resolver struct {
	identities domain.IdentityRepository
	tenants    domain.TenantRepository
	cache      Cache
	ttl        time.Duration
}

// NewResolver returns a Resolver. cache may be nil.
func NewResolver(identities domain.IdentityRepository, tenants domain.TenantRepository, cache Cache, ttl time.Duration) *Resolver {
	return &Resolver{
		identities: identities,
		tenants:    tenants,
		cache:      cache,
		ttl:        ttl,
	}
}

// Resolve loads the actor for userID. A user without an identity resolves to
// an unconfigured actor, not an error.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (domain.Actor, error) {
	if userID == uuid.Nil {
		return domain.Actor{}, fmt.Errorf("identity.Resolve: %w", domain.ErrUnauthenticated)
	}

	id, err := r.lookup(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.UnconfiguredActor(userID), nil
	}
	if err != nil {
		return domain.Actor{}, fmt.Errorf("identity.Resolve: %w", err)
	}

	active, err := r.IsActive(ctx, id.TenantID)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("identity.Resolve: %w", err)
	}
	return domain.ConfiguredActor(id, active), nil
}

func (r *Resolver) lookup(ctx context.Context, userID uuid.UUID) (*domain.Identity, error) {
	if r.cache != nil {
		id, ok, err := r.cache.GetIdentity(ctx, userID)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("identity cache read failed")
		case ok:
			return id, nil
		}
	}

	id, err := r.identities.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.SetIdentity(ctx, id, r.ttl); err != nil {
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("identity cache write failed")
		}
	}
	return id, nil
}

// IsActive reports whether the tenant exists and is active. Unknown tenants
// are inactive.
func (r *Resolver) IsActive(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	t, err := r.tenants.GetByID(ctx, tenantID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return t.IsActive(), nil
}

// RoleOf returns the actor's role, or ErrUnconfigured.
func RoleOf(actor domain.Actor) (domain.Role, error) {
	if !actor.Configured() {
		return "", domain.ErrUnconfigured
	}
	return actor.Role(), nil
}
