// Package provision creates tenants and bound users outside the HTTP
// surface, and loads demo data for local development.
package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/complaintdesk/internal/domain"
)

// Registrar creates users with hashed passwords.
type Registrar interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
}

type Provisioner struct {
	tenants    domain.TenantRepository
	identities domain.IdentityRepository
	users      Registrar
	now        func() time.Time
}

func New(tenants domain.TenantRepository, identities domain.IdentityRepository, users Registrar) *Provisioner {
	return &Provisioner{
		tenants:    tenants,
		identities: identities,
		users:      users,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateTenant registers a new active tenant. The slug becomes the
// complaint reference prefix and cannot be changed later.
func (p *Provisioner) CreateTenant(ctx context.Context, name, slug string) (*domain.Tenant, error) {
	t, err := domain.NewTenant(name, strings.ToLower(strings.TrimSpace(slug)), p.now())
	if err != nil {
		return nil, fmt.Errorf("provision.CreateTenant: %w", err)
	}
	if err := p.tenants.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("provision.CreateTenant: %w", err)
	}

	log.Info().Str("tenant", t.Slug).Str("tenant_id", t.ID.String()).Msg("tenant provisioned")
	return t, nil
}

// SetTenantActive toggles the tenant's active flag.
func (p *Provisioner) SetTenantActive(ctx context.Context, slug string, active bool) error {
	t, err := p.tenants.GetBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("provision.SetTenantActive: %w", err)
	}
	if err := p.tenants.SetActive(ctx, t.ID, active); err != nil {
		return fmt.Errorf("provision.SetTenantActive: %w", err)
	}

	log.Info().Str("tenant", t.Slug).Bool("active", active).Msg("tenant activity changed")
	return nil
}

// CreateUser registers a user and binds it to the tenant with the given
// role. If binding fails the user is left unconfigured: it can log in but
// every action is refused.
func (p *Provisioner) CreateUser(ctx context.Context, username, password, tenantSlug string, role domain.Role) (*domain.Identity, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("provision.CreateUser: invalid role %q: %w", role, domain.ErrValidation)
	}
	t, err := p.tenants.GetBySlug(ctx, tenantSlug)
	if err != nil {
		return nil, fmt.Errorf("provision.CreateUser: tenant %q: %w", tenantSlug, err)
	}

	u, err := p.users.Register(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("provision.CreateUser: %w", err)
	}

	id := &domain.Identity{
		UserID:    u.ID,
		Username:  u.Username,
		TenantID:  t.ID,
		Role:      role,
		CreatedAt: p.now(),
	}
	if err := p.identities.Create(ctx, id); err != nil {
		log.Error().Err(err).Str("username", u.Username).Msg("user created without identity")
		return nil, fmt.Errorf("provision.CreateUser: bind identity: %w", err)
	}

	log.Info().
		Str("username", u.Username).
		Str("tenant", t.Slug).
		Str("role", string(role)).
		Msg("user provisioned")
	return id, nil
}

// tenantBySlug returns the tenant, or nil when it does not exist.
func (p *Provisioner) tenantBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	t, err := p.tenants.GetBySlug(ctx, slug)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil //nolint:nilnil // absence is not an error here
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func actorFor(id *domain.Identity) domain.Actor {
	return domain.ConfiguredActor(id, true)
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }
