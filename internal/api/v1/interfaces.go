package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/complaintdesk/internal/complaint"
	"github.com/gosuda/complaintdesk/internal/domain"
)

// ComplaintService abstracts the complaint lifecycle for handler testing.
// *complaint.Service satisfies this interface.
type ComplaintService interface {
	Create(ctx context.Context, actor domain.Actor, in complaint.CreateInput) (*domain.Complaint, error)
	ChangeStatus(ctx context.Context, actor domain.Actor, ref, status string) (*domain.Complaint, error)
	Assign(ctx context.Context, actor domain.Actor, ref string, assigneeID uuid.UUID) (*domain.Complaint, error)
	AddResolutionNotes(ctx context.Context, actor domain.Actor, ref, notes string) (*domain.Complaint, error)
	Close(ctx context.Context, actor domain.Actor, ref string) (*domain.Complaint, error)

	Get(ctx context.Context, actor domain.Actor, ref string) (*domain.Complaint, error)
	History(ctx context.Context, actor domain.Actor, ref string, p domain.Page) ([]*domain.AuditEntry, error)
	List(ctx context.Context, actor domain.Actor, f complaint.ListFilter, p domain.Page) (*complaint.ListResult, error)
	Dashboard(ctx context.Context, actor domain.Actor) (*complaint.Dashboard, error)
	AssignableStaff(ctx context.Context, actor domain.Actor) ([]*domain.Identity, error)
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Login(ctx context.Context, username, password string) (accessToken, refreshToken string, err error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
}
