package complaint

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosuda/complaintdesk/internal/authz"
	"github.com/gosuda/complaintdesk/internal/domain"
)

// Get returns one complaint if the actor may view it.
func (s *Service) Get(ctx context.Context, actor domain.Actor, ref string) (*domain.Complaint, error) {
	c, err := s.load(ctx, actor, ref)
	if err != nil {
		return nil, fmt.Errorf("complaint.Get: %w", err)
	}
	return c, nil
}

// History returns the audit trail of a complaint, newest first.
func (s *Service) History(ctx context.Context, actor domain.Actor, ref string, p domain.Page) ([]*domain.AuditEntry, error) {
	c, err := s.load(ctx, actor, ref)
	if err != nil {
		return nil, fmt.Errorf("complaint.History: %w", err)
	}
	entries, err := s.trail.History(ctx, s.store.Audit(), c.TenantID, c.ID, p)
	if err != nil {
		return nil, fmt.Errorf("complaint.History: %w", err)
	}
	return entries, nil
}

func (s *Service) load(ctx context.Context, actor domain.Actor, ref string) (*domain.Complaint, error) {
	if err := s.authorize(actor, authz.View, nil); err != nil {
		return nil, err
	}
	c, err := s.store.Complaints().GetByReference(ctx, actor.TenantID(), ref)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, authz.View, c); err != nil {
		return nil, err
	}
	return c, nil
}

type ListFilter struct {
	Status   string
	Priority string
	Search   string
}

type ListResult struct {
	Items []*domain.Complaint
	Total int
	Page  domain.Page
}

// List returns the complaints visible to the actor, newest first. Consumers
// only ever see their own.
func (s *Service) List(ctx context.Context, actor domain.Actor, f ListFilter, p domain.Page) (*ListResult, error) {
	if err := s.authorize(actor, authz.View, nil); err != nil {
		return nil, fmt.Errorf("complaint.List: %w", err)
	}

	var filter domain.ComplaintFilter
	if f.Status != "" {
		st, err := domain.ParseStatus(f.Status)
		if err != nil {
			return nil, fmt.Errorf("complaint.List: %w", err)
		}
		filter.Status = st
	}
	if f.Priority != "" {
		pr, err := domain.ParsePriority(f.Priority)
		if err != nil {
			return nil, fmt.Errorf("complaint.List: %w", err)
		}
		filter.Priority = pr
	}
	filter.Search = strings.TrimSpace(f.Search)
	scopeToActor(actor, &filter)

	p = p.Normalize(DefaultListSize, MaxListSize)
	items, total, err := s.store.Complaints().List(ctx, actor.TenantID(), filter, p)
	if err != nil {
		return nil, fmt.Errorf("complaint.List: %w", err)
	}
	return &ListResult{Items: items, Total: total, Page: p}, nil
}

func scopeToActor(actor domain.Actor, f *domain.ComplaintFilter) {
	if actor.Role() == domain.RoleConsumer {
		self := actor.UserID
		f.SubmittedBy = &self
	}
}

// Dashboard summarizes complaint counts for the actor's landing page.
type Dashboard struct {
	Role     domain.Role
	Total    int
	ByStatus map[domain.ComplaintStatus]int
	// Unassigned counts complaints nobody is working on that are not yet
	// closed. Staff only.
	Unassigned int
	// AssignedToMe counts the support actor's complaints that are not yet
	// closed.
	AssignedToMe int
}

func (s *Service) Dashboard(ctx context.Context, actor domain.Actor) (*Dashboard, error) {
	if err := s.authorize(actor, authz.View, nil); err != nil {
		return nil, fmt.Errorf("complaint.Dashboard: %w", err)
	}

	repo := s.store.Complaints()
	tenantID := actor.TenantID()

	var base domain.ComplaintFilter
	scopeToActor(actor, &base)
	counts, err := repo.CountByStatus(ctx, tenantID, base)
	if err != nil {
		return nil, fmt.Errorf("complaint.Dashboard: %w", err)
	}

	d := &Dashboard{Role: actor.Role(), ByStatus: make(map[domain.ComplaintStatus]int, len(domain.AllStatuses))}
	for _, st := range domain.AllStatuses {
		d.ByStatus[st] = counts[st]
		d.Total += counts[st]
	}
	if !actor.Role().IsStaff() {
		return d, nil
	}

	unassigned, err := repo.CountByStatus(ctx, tenantID, domain.ComplaintFilter{Unassigned: true})
	if err != nil {
		return nil, fmt.Errorf("complaint.Dashboard: %w", err)
	}
	d.Unassigned = notClosed(unassigned)

	if actor.Role() == domain.RoleSupport {
		me := actor.UserID
		mine, err := repo.CountByStatus(ctx, tenantID, domain.ComplaintFilter{AssignedTo: &me})
		if err != nil {
			return nil, fmt.Errorf("complaint.Dashboard: %w", err)
		}
		d.AssignedToMe = notClosed(mine)
	}
	return d, nil
}

func notClosed(counts map[domain.ComplaintStatus]int) int {
	return counts[domain.StatusOpen] + counts[domain.StatusInProgress] + counts[domain.StatusResolved]
}

// AssignableStaff lists identities a complaint in the actor's tenant may be
// assigned to.
func (s *Service) AssignableStaff(ctx context.Context, actor domain.Actor) ([]*domain.Identity, error) {
	if err := s.authorize(actor, authz.Assign, nil); err != nil {
		return nil, fmt.Errorf("complaint.AssignableStaff: %w", err)
	}
	staff, err := s.store.Identities().ListByTenant(ctx, actor.TenantID(), domain.RoleSupport, domain.RoleManager)
	if err != nil {
		return nil, fmt.Errorf("complaint.AssignableStaff: %w", err)
	}
	return staff, nil
}
