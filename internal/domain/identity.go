package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleConsumer Role = "consumer"
	RoleHelpdesk Role = "helpdesk"
	RoleSupport  Role = "support"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

var roleRank = map[Role]int{
	RoleConsumer: 1,
	RoleHelpdesk: 2,
	RoleSupport:  3,
	RoleManager:  4,
	RoleAdmin:    5,
}

// Valid reports whether r is one of the five known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank orders roles by scope, consumer lowest. Unknown roles rank 0.
func (r Role) Rank() int {
	return roleRank[r]
}

// IsStaff reports whether r acts on behalf of the organization.
func (r Role) IsStaff() bool {
	return r.Rank() > roleRank[RoleConsumer]
}

// CanBeAssigned reports whether complaints may be assigned to an identity
// holding r.
func (r Role) CanBeAssigned() bool {
	return r == RoleSupport || r == RoleManager
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("role %q: %w", s, ErrValidation)
	}
	return r, nil
}

// Identity binds a user to exactly one tenant with exactly one role. It is
// created at provisioning time and never reassigned.
type Identity struct {
	UserID    uuid.UUID
	Username  string
	TenantID  uuid.UUID
	Role      Role
	CreatedAt time.Time
}

// Actor is the per-request view of who is acting. An authenticated user
// without an Identity is an unconfigured actor; every check on it denies.
type Actor struct {
	UserID       uuid.UUID
	Identity     *Identity
	TenantActive bool
}

// UnconfiguredActor returns an actor for an authenticated user who has no
// identity.
func UnconfiguredActor(userID uuid.UUID) Actor {
	return Actor{UserID: userID}
}

// ConfiguredActor returns an actor bound to id.
func ConfiguredActor(id *Identity, tenantActive bool) Actor {
	return Actor{UserID: id.UserID, Identity: id, TenantActive: tenantActive}
}

func (a Actor) Authenticated() bool { return a.UserID != uuid.Nil }

func (a Actor) Configured() bool { return a.Identity != nil }

// TenantID returns uuid.Nil for unconfigured actors.
func (a Actor) TenantID() uuid.UUID {
	if a.Identity == nil {
		return uuid.Nil
	}
	return a.Identity.TenantID
}

// Role returns the empty role for unconfigured actors.
func (a Actor) Role() Role {
	if a.Identity == nil {
		return ""
	}
	return a.Identity.Role
}

func (a Actor) IsAdmin() bool { return a.Role() == RoleAdmin }

type IdentityRepository interface {
	Create(ctx context.Context, id *Identity) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Identity, error)
	// ListByTenant returns identities in the tenant, optionally restricted
	// to the given roles.
	ListByTenant(ctx context.Context, tenantID uuid.UUID, roles ...Role) ([]*Identity, error)
}
