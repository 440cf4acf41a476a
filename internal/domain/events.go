package domain

import (
	"time"

	"github.com/google/uuid"
)

// ComplaintEvent is published after a complaint mutation commits.
type ComplaintEvent struct {
	Type        AuditAction     `json:"type"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	Reference   string          `json:"reference"`
	Status      ComplaintStatus `json:"status"`
	SubmittedBy *uuid.UUID      `json:"submitted_by,omitempty"`
	AssignedTo  *uuid.UUID      `json:"assigned_to,omitempty"`
	ActorID     uuid.UUID       `json:"actor_id"`
	At          time.Time       `json:"at"`
}
