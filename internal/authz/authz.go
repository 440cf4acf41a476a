// Package authz decides whether an actor may perform an action, optionally
// against a specific complaint. Every service operation calls Authorize
// before touching storage.
package authz

import (
	"fmt"

	"github.com/gosuda/complaintdesk/internal/domain"
)

type Action string

const (
	CreateOwn      Action = "create_own"
	CreateOnBehalf Action = "create_on_behalf"
	ChangeStatus   Action = "change_status"
	Assign         Action = "assign"
	AddResolution  Action = "add_resolution"
	Close          Action = "close"
	View           Action = "view"
)

var policy = map[Action][]domain.Role{
	CreateOwn:      {domain.RoleConsumer},
	CreateOnBehalf: {domain.RoleHelpdesk, domain.RoleSupport, domain.RoleManager, domain.RoleAdmin},
	ChangeStatus:   {domain.RoleHelpdesk, domain.RoleSupport, domain.RoleManager, domain.RoleAdmin},
	Assign:         {domain.RoleHelpdesk, domain.RoleManager, domain.RoleAdmin},
	AddResolution:  {domain.RoleSupport, domain.RoleManager},
	Close:          {domain.RoleConsumer},
	View:           {domain.RoleConsumer, domain.RoleHelpdesk, domain.RoleSupport, domain.RoleManager, domain.RoleAdmin},
}

// Roles returns the roles the policy grants action to.
func Roles(action Action) []domain.Role {
	return append([]domain.Role(nil), policy[action]...)
}

// Decision is the outcome of a check. The zero value denies.
type Decision struct {
	Allowed bool
	Reason  string
	err     error
}

// Err returns nil when allowed, otherwise an error wrapping ErrUnauthenticated,
// ErrUnconfigured or ErrDenied.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.err == nil {
		return fmt.Errorf("authz: %s: %w", d.Reason, domain.ErrDenied)
	}
	return fmt.Errorf("authz: %s: %w", d.Reason, d.err)
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision {
	return Decision{Reason: reason, err: domain.ErrDenied}
}

// Authorize checks actor against the policy table. When target is non-nil the
// complaint-level rules apply too: tenant isolation (no role bypasses it),
// consumers only see their own complaints, and only the submitter may close.
func Authorize(actor domain.Actor, action Action, target *domain.Complaint) Decision {
	if !actor.Authenticated() {
		return Decision{Reason: "not authenticated", err: domain.ErrUnauthenticated}
	}
	if !actor.Configured() {
		return Decision{Reason: "no identity for user", err: domain.ErrUnconfigured}
	}
	if !actor.TenantActive {
		return deny("tenant inactive")
	}
	if !roleAllowed(actor.Role(), action) {
		return deny(fmt.Sprintf("role %s may not %s", actor.Role(), action))
	}
	if target == nil {
		return allow()
	}

	if target.TenantID != actor.TenantID() {
		return deny("complaint belongs to another tenant")
	}
	switch action {
	case Close:
		if !target.IsSubmittedBy(actor.UserID) {
			return deny("only the submitter may close")
		}
	default:
		if actor.Role() == domain.RoleConsumer && !target.IsSubmittedBy(actor.UserID) {
			return deny("consumers may only access their own complaints")
		}
	}
	return allow()
}

// CanView reports whether actor may see c.
func CanView(actor domain.Actor, c *domain.Complaint) bool {
	return Authorize(actor, View, c).Allowed
}

func roleAllowed(role domain.Role, action Action) bool {
	for _, r := range policy[action] {
		if r == role {
			return true
		}
	}
	return false
}
