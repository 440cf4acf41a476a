package provision

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/complaintdesk/internal/complaint"
	"github.com/gosuda/complaintdesk/internal/domain"
)

// Complaints is the part of the complaint service the seed drives.
type Complaints interface {
	Create(ctx context.Context, actor domain.Actor, in complaint.CreateInput) (*domain.Complaint, error)
	ChangeStatus(ctx context.Context, actor domain.Actor, ref string, status string) (*domain.Complaint, error)
	Assign(ctx context.Context, actor domain.Actor, ref string, assigneeID uuid.UUID) (*domain.Complaint, error)
	AddResolutionNotes(ctx context.Context, actor domain.Actor, ref string, notes string) (*domain.Complaint, error)
	Close(ctx context.Context, actor domain.Actor, ref string) (*domain.Complaint, error)
}

var demoTenants = []struct{ name, slug string }{
	{"Acme Corporation", "acme"},
	{"TechStart Inc", "techstart"},
}

var demoRoles = []domain.Role{
	domain.RoleConsumer,
	domain.RoleHelpdesk,
	domain.RoleSupport,
	domain.RoleManager,
}

// Seed loads two demo tenants with one user per role (named
// "<slug>_<role>", all sharing password) and a handful of complaints in
// various states. Every complaint change goes through the service so the
// audit trail is populated. Seeding is skipped when the first demo tenant
// already exists.
func (p *Provisioner) Seed(ctx context.Context, svc Complaints, password string) error {
	existing, err := p.tenantBySlug(ctx, demoTenants[0].slug)
	if err != nil {
		return fmt.Errorf("provision.Seed: %w", err)
	}
	if existing != nil {
		log.Info().Str("tenant", existing.Slug).Msg("demo data already present, skipping seed")
		return nil
	}

	for _, dt := range demoTenants {
		if _, err := p.CreateTenant(ctx, dt.name, dt.slug); err != nil {
			return fmt.Errorf("provision.Seed: %w", err)
		}

		users := make(map[domain.Role]*domain.Identity, len(demoRoles))
		for _, role := range demoRoles {
			id, err := p.CreateUser(ctx, dt.slug+"_"+string(role), password, dt.slug, role)
			if err != nil {
				return fmt.Errorf("provision.Seed: %w", err)
			}
			users[role] = id
		}

		if err := seedComplaints(ctx, svc, users); err != nil {
			return fmt.Errorf("provision.Seed: tenant %s: %w", dt.slug, err)
		}
	}

	log.Info().Int("tenants", len(demoTenants)).Msg("demo data seeded")
	return nil
}

func seedComplaints(ctx context.Context, svc Complaints, users map[domain.Role]*domain.Identity) error {
	consumer := actorFor(users[domain.RoleConsumer])
	helpdesk := actorFor(users[domain.RoleHelpdesk])
	support := actorFor(users[domain.RoleSupport])
	manager := actorFor(users[domain.RoleManager])

	// Open, filed by the consumer.
	if _, err := svc.Create(ctx, consumer, complaint.CreateInput{
		Title:       "Delivery arrived damaged",
		Description: "The package was crushed and the item inside is broken.",
		Category:    "Shipping",
		Priority:    string(domain.PriorityHigh),
	}); err != nil {
		return err
	}

	// Logged by helpdesk over the phone; assignment moves it to in_progress.
	c, err := svc.Create(ctx, helpdesk, complaint.CreateInput{
		Title:       "Billed twice for subscription",
		Description: "Customer reports two charges for the same month.",
		Category:    "Billing",
		Priority:    string(domain.PriorityMedium),
		OnBehalfOf:  ptr(consumer.UserID),
	})
	if err != nil {
		return err
	}
	if _, err := svc.Assign(ctx, manager, c.Reference, support.UserID); err != nil {
		return err
	}

	// Walked through to closure by the submitter.
	c, err = svc.Create(ctx, consumer, complaint.CreateInput{
		Title:       "Cannot reset password",
		Description: "The reset email never arrives.",
		Category:    "Account",
		Priority:    string(domain.PriorityLow),
	})
	if err != nil {
		return err
	}
	if _, err := svc.Assign(ctx, helpdesk, c.Reference, support.UserID); err != nil {
		return err
	}
	if _, err := svc.AddResolutionNotes(ctx, support, c.Reference, "Mail provider was blocking our sender; allow-listed and resent."); err != nil {
		return err
	}
	if _, err := svc.ChangeStatus(ctx, support, c.Reference, string(domain.StatusResolved)); err != nil {
		return err
	}
	_, err = svc.Close(ctx, consumer, c.Reference)
	return err
}
