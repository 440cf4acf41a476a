package domain

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type Tenant struct {
	ID        uuid.UUID
	Name      string
	Slug      string // immutable once assigned
	Active    bool
	CreatedAt time.Time
}

// NewTenant validates name and slug and returns an active tenant.
func NewTenant(name, slug string, now time.Time) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("tenant: name is required: %w", ErrValidation)
	}
	if len(slug) > 63 || !slugPattern.MatchString(slug) {
		return nil, fmt.Errorf("tenant: invalid slug %q: %w", slug, ErrValidation)
	}
	return &Tenant{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		Active:    true,
		CreatedAt: now,
	}, nil
}

// IsActive reports whether the tenant accepts actions. Deactivation is a flag;
// tenants are never deleted.
func (t *Tenant) IsActive() bool {
	return t != nil && t.Active
}

type TenantRepository interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	List(ctx context.Context) ([]*Tenant, error)
}
