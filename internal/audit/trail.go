// Package audit records and reads the append-only complaint history.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/complaintdesk/internal/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Writer is satisfied by a transaction-bound audit repository.
type Writer interface {
	Append(ctx context.Context, e *domain.AuditEntry) error
}

type Reader interface {
	ListByComplaint(ctx context.Context, tenantID, complaintID uuid.UUID, limit, offset int) ([]*domain.AuditEntry, error)
}

type RecordInput struct {
	TenantID    uuid.UUID
	ComplaintID uuid.UUID
	ActorID     uuid.UUID
	Action      domain.AuditAction
	Details     string
	OldValue    string
	NewValue    string
}

type Trail struct {
	now func() time.Time
}

func NewTrail() *Trail {
	return &Trail{now: time.Now}
}

// NewTrailWithClock is used by tests that need stable timestamps.
func NewTrailWithClock(now func() time.Time) *Trail {
	return &Trail{now: now}
}

// Record appends one entry through w. A returned error must abort the
// enclosing transaction.
func (t *Trail) Record(ctx context.Context, w Writer, in RecordInput) (*domain.AuditEntry, error) {
	if in.TenantID == uuid.Nil || in.ComplaintID == uuid.Nil {
		return nil, fmt.Errorf("audit.Record: tenant and complaint are required: %w", domain.ErrValidation)
	}
	if !in.Action.Valid() {
		return nil, fmt.Errorf("audit.Record: action %q: %w", in.Action, domain.ErrValidation)
	}

	e := &domain.AuditEntry{
		ID:          uuid.New(),
		TenantID:    in.TenantID,
		ComplaintID: in.ComplaintID,
		Action:      in.Action,
		Details:     in.Details,
		OldValue:    in.OldValue,
		NewValue:    in.NewValue,
		CreatedAt:   t.now().UTC(),
	}
	if in.ActorID != uuid.Nil {
		actor := in.ActorID
		e.ActorID = &actor
	}

	if err := w.Append(ctx, e); err != nil {
		return nil, fmt.Errorf("audit.Record: %w", err)
	}
	return e, nil
}

// History returns entries for one complaint, newest first.
func (t *Trail) History(ctx context.Context, r Reader, tenantID, complaintID uuid.UUID, p domain.Page) ([]*domain.AuditEntry, error) {
	p = p.Normalize(DefaultPageSize, MaxPageSize)
	entries, err := r.ListByComplaint(ctx, tenantID, complaintID, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("audit.History: %w", err)
	}
	return entries, nil
}
