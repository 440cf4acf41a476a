package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditCreated         AuditAction = "created"
	AuditStatusChange    AuditAction = "status_change"
	AuditAssigned        AuditAction = "assigned"
	AuditResolutionAdded AuditAction = "resolution_added"
	AuditClosed          AuditAction = "closed"
)

func (a AuditAction) Valid() bool {
	switch a {
	case AuditCreated, AuditStatusChange, AuditAssigned, AuditResolutionAdded, AuditClosed:
		return true
	}
	return false
}

type AuditEntry struct {
	ID          uuid.UUID
	Seq         int64 // assigned by storage; orders entries sharing a timestamp
	TenantID    uuid.UUID
	ComplaintID uuid.UUID
	ActorID     *uuid.UUID
	Action      AuditAction
	Details     string
	OldValue    string
	NewValue    string
	CreatedAt   time.Time
}

// AuditRepository is append-only. There is deliberately no update or delete.
type AuditRepository interface {
	// Append stores e and sets e.Seq.
	Append(ctx context.Context, e *AuditEntry) error
	// ListByComplaint returns entries newest first.
	ListByComplaint(ctx context.Context, tenantID, complaintID uuid.UUID, limit, offset int) ([]*AuditEntry, error)
}
