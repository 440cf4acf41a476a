// Package complaint implements the complaint lifecycle: creation, status
// changes, assignment, resolution and closure, each paired with its audit
// entries in a single transaction.
package complaint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/complaintdesk/internal/audit"
	"github.com/gosuda/complaintdesk/internal/authz"
	"github.com/gosuda/complaintdesk/internal/domain"
	"github.com/gosuda/complaintdesk/internal/metrics"
	"github.com/gosuda/complaintdesk/internal/refnum"
)

const (
	maxReferenceAttempts = 5

	DefaultListSize = 10
	MaxListSize     = 100

	maxCategoryLen = 100
)

// Store is the persistence surface the service needs.
type Store interface {
	domain.TxRunner
	Tenants() domain.TenantRepository
	Identities() domain.IdentityRepository
	Complaints() domain.ComplaintRepository
	Audit() domain.AuditRepository
}

// Publisher fans out committed complaint events. Failures are logged and do
// not affect the committed mutation.
type Publisher interface {
	PublishComplaintEvent(ctx context.Context, ev domain.ComplaintEvent) error
}

type Service struct {
	store Store
	refs  *refnum.Generator
	trail *audit.Trail
	pub   Publisher
	now   func() time.Time
}

// NewService returns a Service. pub may be nil.
func NewService(store Store, refs *refnum.Generator, trail *audit.Trail, pub Publisher) *Service {
	return &Service{
		store: store,
		refs:  refs,
		trail: trail,
		pub:   pub,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type CreateInput struct {
	Title       string
	Description string
	Category    string
	Priority    string
	// OnBehalfOf names the consumer a staff member is logging the complaint
	// for. Required for staff, rejected for consumers.
	OnBehalfOf *uuid.UUID
}

// Create files a new complaint in the actor's tenant.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (*domain.Complaint, error) {
	action := authz.CreateOwn
	if actor.Role().IsStaff() {
		action = authz.CreateOnBehalf
	}
	if err := s.authorize(actor, action, nil); err != nil {
		return nil, fmt.Errorf("complaint.Create: %w", err)
	}
	if action == authz.CreateOwn && in.OnBehalfOf != nil && *in.OnBehalfOf != actor.UserID {
		metrics.RecordDenial(string(authz.CreateOnBehalf))
		return nil, fmt.Errorf("complaint.Create: consumers may not file for others: %w", domain.ErrDenied)
	}

	title, err := domain.ValidateTitle(in.Title)
	if err != nil {
		return nil, fmt.Errorf("complaint.Create: %w", err)
	}
	priority, err := domain.ParsePriority(in.Priority)
	if err != nil {
		return nil, fmt.Errorf("complaint.Create: %w", err)
	}
	category := strings.TrimSpace(in.Category)
	if len(category) > maxCategoryLen {
		return nil, fmt.Errorf("complaint.Create: category exceeds %d characters: %w", maxCategoryLen, domain.ErrValidation)
	}

	tenant, err := s.store.Tenants().GetByID(ctx, actor.TenantID())
	if err != nil {
		return nil, fmt.Errorf("complaint.Create: %w", err)
	}

	now := s.now()
	c := &domain.Complaint{
		ID:          uuid.New(),
		TenantID:    tenant.ID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Category:    category,
		Priority:    priority,
		Status:      domain.StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if action == authz.CreateOwn {
		submitter := actor.UserID
		c.SubmittedBy = &submitter
	} else {
		if in.OnBehalfOf == nil {
			return nil, fmt.Errorf("complaint.Create: consumer is required when filing on behalf: %w", domain.ErrValidation)
		}
		submitter, loggedBy := *in.OnBehalfOf, actor.UserID
		c.SubmittedBy = &submitter
		c.LoggedBy = &loggedBy
	}

	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		ref, err := s.refs.Next(tenant.Slug)
		if err != nil {
			return nil, fmt.Errorf("complaint.Create: %w", err)
		}
		c.Reference = ref
		c.Version = 1

		err = s.store.InTx(ctx, func(tx domain.Tx) error {
			if c.LoggedBy != nil {
				if err := checkConsumer(ctx, tx, tenant.ID, *c.SubmittedBy); err != nil {
					return err
				}
			}
			if err := tx.Complaints().Create(ctx, c); err != nil {
				return err
			}
			_, err := s.trail.Record(ctx, tx.Audit(), audit.RecordInput{
				TenantID:    c.TenantID,
				ComplaintID: c.ID,
				ActorID:     actor.UserID,
				Action:      domain.AuditCreated,
				Details:     "Complaint created: " + c.Title,
				NewValue:    string(domain.StatusOpen),
			})
			return err
		})
		if errors.Is(err, domain.ErrDuplicateReference) {
			metrics.ReferenceRetries.Inc()
			log.Warn().Str("reference", ref).Int("attempt", attempt).Msg("reference collision, regenerating")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("complaint.Create: %w", err)
		}

		metrics.RecordAudit(string(domain.AuditCreated))
		log.Info().
			Str("tenant", tenant.Slug).
			Str("reference", c.Reference).
			Str("actor_id", actor.UserID.String()).
			Msg("complaint created")
		s.publish(ctx, domain.AuditCreated, actor, c)
		return c, nil
	}

	return nil, fmt.Errorf("complaint.Create: no unique reference after %d attempts", maxReferenceAttempts)
}

// checkConsumer verifies that userID is a consumer of tenantID.
func checkConsumer(ctx context.Context, tx domain.Tx, tenantID, userID uuid.UUID) error {
	id, err := tx.Identities().GetByUserID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("consumer %s does not exist: %w", userID, domain.ErrValidation)
	}
	if err != nil {
		return err
	}
	if id.TenantID != tenantID || id.Role != domain.RoleConsumer {
		return fmt.Errorf("user %s is not a consumer of this tenant: %w", userID, domain.ErrValidation)
	}
	return nil
}

// ChangeStatus moves a complaint along the lifecycle table. Administrators
// may override the table but nobody may close through this path.
func (s *Service) ChangeStatus(ctx context.Context, actor domain.Actor, ref string, status string) (*domain.Complaint, error) {
	if err := s.authorize(actor, authz.ChangeStatus, nil); err != nil {
		return nil, fmt.Errorf("complaint.ChangeStatus: %w", err)
	}
	next, err := domain.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("complaint.ChangeStatus: %w", err)
	}

	c, err := s.mutate(ctx, actor, authz.ChangeStatus, ref, func(_ domain.Tx, c *domain.Complaint, now time.Time) ([]audit.RecordInput, error) {
		if next == domain.StatusClosed {
			return nil, fmt.Errorf("closing requires the submitter's confirmation: %w", domain.ErrInvalidTransition)
		}
		prev := c.Status
		if !prev.CanTransition(next, actor.IsAdmin()) {
			return nil, fmt.Errorf("%s to %s: %w", prev, next, domain.ErrInvalidTransition)
		}
		c.ApplyStatus(next, now)
		return []audit.RecordInput{statusEntry(prev, next, "")}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("complaint.ChangeStatus: %w", err)
	}
	return c, nil
}

// Assign hands a complaint to a support or manager identity of the same
// tenant. An open complaint advances to in_progress in the same transaction.
func (s *Service) Assign(ctx context.Context, actor domain.Actor, ref string, assigneeID uuid.UUID) (*domain.Complaint, error) {
	c, err := s.mutate(ctx, actor, authz.Assign, ref, func(tx domain.Tx, c *domain.Complaint, now time.Time) ([]audit.RecordInput, error) {
		if c.Status == domain.StatusClosed {
			return nil, fmt.Errorf("complaint is closed: %w", domain.ErrWrongState)
		}

		assignee, err := tx.Identities().GetByUserID(ctx, assigneeID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("assignee %s does not exist: %w", assigneeID, domain.ErrValidation)
		}
		if err != nil {
			return nil, err
		}
		if assignee.TenantID != c.TenantID || !assignee.Role.CanBeAssigned() {
			return nil, fmt.Errorf("assignee %s is not support staff of this tenant: %w", assigneeID, domain.ErrValidation)
		}
		if c.AssignedTo != nil && *c.AssignedTo == assignee.UserID {
			return nil, fmt.Errorf("complaint is already assigned to %s: %w", assignee.Username, domain.ErrValidation)
		}

		oldName, err := assigneeName(ctx, tx, c.AssignedTo)
		if err != nil {
			return nil, err
		}

		id := assignee.UserID
		c.AssignedTo = &id
		c.UpdatedAt = now
		entries := []audit.RecordInput{{
			Action:   domain.AuditAssigned,
			Details:  "Assigned to " + assignee.Username,
			OldValue: oldName,
			NewValue: assignee.Username,
		}}

		if c.Status == domain.StatusOpen {
			c.ApplyStatus(domain.StatusInProgress, now)
			entries = append(entries, statusEntry(domain.StatusOpen, domain.StatusInProgress, " on assignment"))
		}
		return entries, nil
	})
	if err != nil {
		return nil, fmt.Errorf("complaint.Assign: %w", err)
	}
	return c, nil
}

func assigneeName(ctx context.Context, tx domain.Tx, userID *uuid.UUID) (string, error) {
	if userID == nil {
		return "Unassigned", nil
	}
	id, err := tx.Identities().GetByUserID(ctx, *userID)
	if errors.Is(err, domain.ErrNotFound) {
		return userID.String(), nil
	}
	if err != nil {
		return "", err
	}
	return id.Username, nil
}

// AddResolutionNotes replaces the resolution notes of a complaint.
func (s *Service) AddResolutionNotes(ctx context.Context, actor domain.Actor, ref string, notes string) (*domain.Complaint, error) {
	notes = strings.TrimSpace(notes)
	c, err := s.mutate(ctx, actor, authz.AddResolution, ref, func(_ domain.Tx, c *domain.Complaint, now time.Time) ([]audit.RecordInput, error) {
		if c.Status == domain.StatusClosed {
			return nil, fmt.Errorf("complaint is closed: %w", domain.ErrWrongState)
		}
		if notes == "" {
			return nil, fmt.Errorf("resolution notes are required: %w", domain.ErrValidation)
		}
		c.ResolutionNotes = notes
		c.UpdatedAt = now
		return []audit.RecordInput{{
			Action:  domain.AuditResolutionAdded,
			Details: "Resolution notes updated",
		}}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("complaint.AddResolutionNotes: %w", err)
	}
	return c, nil
}

// Close is the submitting consumer's confirmation that a resolved complaint
// is done.
func (s *Service) Close(ctx context.Context, actor domain.Actor, ref string) (*domain.Complaint, error) {
	c, err := s.mutate(ctx, actor, authz.Close, ref, func(_ domain.Tx, c *domain.Complaint, now time.Time) ([]audit.RecordInput, error) {
		if c.Status != domain.StatusResolved {
			return nil, fmt.Errorf("only resolved complaints can be closed, status is %s: %w", c.Status, domain.ErrWrongState)
		}
		c.ApplyStatus(domain.StatusClosed, now)
		return []audit.RecordInput{{
			Action:   domain.AuditClosed,
			Details:  "Consumer confirmed resolution and closed the complaint",
			OldValue: string(domain.StatusResolved),
			NewValue: string(domain.StatusClosed),
		}}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("complaint.Close: %w", err)
	}
	return c, nil
}

func statusEntry(from, to domain.ComplaintStatus, suffix string) audit.RecordInput {
	return audit.RecordInput{
		Action:   domain.AuditStatusChange,
		Details:  fmt.Sprintf("Status changed from %s to %s%s", from, to, suffix),
		OldValue: string(from),
		NewValue: string(to),
	}
}

type mutation func(tx domain.Tx, c *domain.Complaint, now time.Time) ([]audit.RecordInput, error)

// mutate runs fn against the locked complaint and writes the returned audit
// entries, in order, in the same transaction. Nothing is written when fn
// fails.
func (s *Service) mutate(ctx context.Context, actor domain.Actor, action authz.Action, ref string, fn mutation) (*domain.Complaint, error) {
	if err := s.authorize(actor, action, nil); err != nil {
		return nil, err
	}

	var (
		out     *domain.Complaint
		prev    domain.ComplaintStatus
		written []audit.RecordInput
	)
	err := s.store.InTx(ctx, func(tx domain.Tx) error {
		c, err := tx.Complaints().GetByReferenceForUpdate(ctx, actor.TenantID(), ref)
		if err != nil {
			return err
		}
		if err := s.authorize(actor, action, c); err != nil {
			return err
		}

		prev = c.Status
		entries, err := fn(tx, c, s.now())
		if err != nil {
			return err
		}
		if err := tx.Complaints().Update(ctx, c); err != nil {
			return err
		}
		for _, in := range entries {
			in.TenantID = c.TenantID
			in.ComplaintID = c.ID
			in.ActorID = actor.UserID
			if _, err := s.trail.Record(ctx, tx.Audit(), in); err != nil {
				return err
			}
		}
		out, written = c, entries
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, in := range written {
		metrics.RecordAudit(string(in.Action))
	}
	if out.Status != prev {
		metrics.RecordTransition(string(prev), string(out.Status))
	}
	log.Info().
		Str("reference", out.Reference).
		Str("action", string(action)).
		Str("actor_id", actor.UserID.String()).
		Str("from", string(prev)).
		Str("to", string(out.Status)).
		Msg("complaint updated")
	s.publish(ctx, written[0].Action, actor, out)
	return out, nil
}

func (s *Service) authorize(actor domain.Actor, action authz.Action, target *domain.Complaint) error {
	d := authz.Authorize(actor, action, target)
	if d.Allowed {
		return nil
	}
	metrics.RecordDenial(string(action))
	log.Debug().
		Str("actor_id", actor.UserID.String()).
		Str("action", string(action)).
		Str("reason", d.Reason).
		Msg("authorization denied")
	return d.Err()
}

func (s *Service) publish(ctx context.Context, kind domain.AuditAction, actor domain.Actor, c *domain.Complaint) {
	if s.pub == nil {
		return
	}
	ev := domain.ComplaintEvent{
		Type:        kind,
		TenantID:    c.TenantID,
		Reference:   c.Reference,
		Status:      c.Status,
		SubmittedBy: c.SubmittedBy,
		AssignedTo:  c.AssignedTo,
		ActorID:     actor.UserID,
		At:          c.UpdatedAt,
	}
	if err := s.pub.PublishComplaintEvent(ctx, ev); err != nil {
		log.Warn().Err(err).Str("reference", c.Reference).Msg("failed to publish complaint event")
	}
}
