package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ComplaintStatus string

const (
	StatusOpen       ComplaintStatus = "open"
	StatusInProgress ComplaintStatus = "in_progress"
	StatusResolved   ComplaintStatus = "resolved"
	StatusClosed     ComplaintStatus = "closed"
)

// AllStatuses lists statuses in lifecycle order.
var AllStatuses = []ComplaintStatus{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}

// ValidTransition checks the fixed lifecycle table.
// Allowed: open->in_progress, in_progress->resolved, in_progress->open (reopen),
// resolved->closed, resolved->in_progress (rework). closed is terminal.
func (s ComplaintStatus) ValidTransition(to ComplaintStatus) bool {
	switch s {
	case StatusOpen:
		return to == StatusInProgress
	case StatusInProgress:
		return to == StatusResolved || to == StatusOpen
	case StatusResolved:
		return to == StatusClosed || to == StatusInProgress
	default:
		return false
	}
}

// CanTransition is ValidTransition widened by an administrative override,
// which permits any move to a different known status.
func (s ComplaintStatus) CanTransition(to ComplaintStatus, override bool) bool {
	if s.ValidTransition(to) {
		return true
	}
	return override && to.Valid() && to != s
}

func (s ComplaintStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

func ParseStatus(s string) (ComplaintStatus, error) {
	st := ComplaintStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("status %q: %w", s, ErrValidation)
	}
	return st, nil
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority maps the empty string to medium.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(s); p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", fmt.Errorf("priority %q: %w", s, ErrValidation)
	}
}

type Complaint struct {
	ID              uuid.UUID
	TenantID        uuid.UUID // immutable
	Reference       string    // immutable, globally unique
	Title           string
	Description     string
	Category        string
	Priority        Priority
	Status          ComplaintStatus
	SubmittedBy     *uuid.UUID // nulled when the submitter's identity is removed
	LoggedBy        *uuid.UUID // staff member who logged it on the consumer's behalf
	AssignedTo      *uuid.UUID
	ResolutionNotes string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ResolvedAt      *time.Time // written once
	ClosedAt        *time.Time // written once
	Version         int64
}

// ApplyStatus moves the complaint to next and stamps resolved_at / closed_at
// the first time those states are entered. It does not check the table.
func (c *Complaint) ApplyStatus(next ComplaintStatus, now time.Time) {
	c.Status = next
	c.UpdatedAt = now
	switch next {
	case StatusResolved:
		if c.ResolvedAt == nil {
			t := now
			c.ResolvedAt = &t
		}
	case StatusClosed:
		if c.ClosedAt == nil {
			t := now
			c.ClosedAt = &t
		}
	}
}

// IsSubmittedBy reports whether userID submitted the complaint.
func (c *Complaint) IsSubmittedBy(userID uuid.UUID) bool {
	return c.SubmittedBy != nil && *c.SubmittedBy == userID
}

// ValidateTitle trims and checks a complaint title.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("title is required: %w", ErrValidation)
	}
	if len(title) > 255 {
		return "", fmt.Errorf("title exceeds 255 characters: %w", ErrValidation)
	}
	return title, nil
}

type ComplaintFilter struct {
	Status      ComplaintStatus
	Priority    Priority
	Search      string // case-insensitive match on reference, title, description
	SubmittedBy *uuid.UUID
	AssignedTo  *uuid.UUID
	Unassigned  bool
}

type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page: a non-positive limit becomes def, limits above
// max become max, and negative offsets become zero.
func (p Page) Normalize(def, max int) Page {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type ComplaintRepository interface {
	// Create returns ErrDuplicateReference when the reference is taken.
	Create(ctx context.Context, c *Complaint) error
	GetByReference(ctx context.Context, tenantID uuid.UUID, ref string) (*Complaint, error)
	// GetByReferenceForUpdate locks the row until the enclosing transaction ends.
	GetByReferenceForUpdate(ctx context.Context, tenantID uuid.UUID, ref string) (*Complaint, error)
	// Update saves c if its stored version still equals c.Version, then
	// increments c.Version. A stale version yields ErrConflict.
	Update(ctx context.Context, c *Complaint) error
	List(ctx context.Context, tenantID uuid.UUID, f ComplaintFilter, p Page) ([]*Complaint, int, error)
	CountByStatus(ctx context.Context, tenantID uuid.UUID, f ComplaintFilter) (map[ComplaintStatus]int, error)
}
