package v1_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/complaintdesk/internal/complaint"
	"github.com/gosuda/complaintdesk/internal/domain"
	"github.com/gosuda/complaintdesk/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers: inject a resolved actor into context for DoCtx
// ---------------------------------------------------------------------------

func actorCtx(tenantID, userID uuid.UUID, role domain.Role) context.Context {
	return middleware.WithActor(context.Background(), domain.ConfiguredActor(&domain.Identity{
		UserID:   userID,
		Username: string(role) + "_user",
		TenantID: tenantID,
		Role:     role,
	}, true))
}

func unconfiguredCtx(userID uuid.UUID) context.Context {
	return middleware.WithActor(context.Background(), domain.UnconfiguredActor(userID))
}

// ---------------------------------------------------------------------------
// Mock ComplaintService
// ---------------------------------------------------------------------------

type mockComplaintService struct {
	createFunc             func(ctx context.Context, actor domain.Actor, in complaint.CreateInput) (*domain.Complaint, error)
	changeStatusFunc       func(ctx context.Context, actor domain.Actor, ref, status string) (*domain.Complaint, error)
	assignFunc             func(ctx context.Context, actor domain.Actor, ref string, assigneeID uuid.UUID) (*domain.Complaint, error)
	addResolutionNotesFunc func(ctx context.Context, actor domain.Actor, ref, notes string) (*domain.Complaint, error)
	closeFunc              func(ctx context.Context, actor domain.Actor, ref string) (*domain.Complaint, error)
	getFunc                func(ctx context.Context, actor domain.Actor, ref string) (*domain.Complaint, error)
	historyFunc            func(ctx context.Context, actor domain.Actor, ref string, p domain.Page) ([]*domain.AuditEntry, error)
	listFunc               func(ctx context.Context, actor domain.Actor, f complaint.ListFilter, p domain.Page) (*complaint.ListResult, error)
	dashboardFunc          func(ctx context.Context, actor domain.Actor) (*complaint.Dashboard, error)
	assignableStaffFunc    func(ctx context.Context, actor domain.Actor) ([]*domain.Identity, error)
}

func (m *mockComplaintService) Create(ctx context.Context, actor domain.Actor, in complaint.CreateInput) (*domain.Complaint, error) {
	return m.createFunc(ctx, actor, in)
}

func (m *mockComplaintService) ChangeStatus(ctx context.Context, actor domain.Actor, ref, status string) (*domain.Complaint, error) {
	return m.changeStatusFunc(ctx, actor, ref, status)
}

func (m *mockComplaintService) Assign(ctx context.Context, actor domain.Actor, ref string, assigneeID uuid.UUID) (*domain.Complaint, error) {
	return m.assignFunc(ctx, actor, ref, assigneeID)
}

func (m *mockComplaintService) AddResolutionNotes(ctx context.Context, actor domain.Actor, ref, notes string) (*domain.Complaint, error) {
	return m.addResolutionNotesFunc(ctx, actor, ref, notes)
}

func (m *mockComplaintService) Close(ctx context.Context, actor domain.Actor, ref string) (*domain.Complaint, error) {
	return m.closeFunc(ctx, actor, ref)
}

func (m *mockComplaintService) Get(ctx context.Context, actor domain.Actor, ref string) (*domain.Complaint, error) {
	return m.getFunc(ctx, actor, ref)
}

func (m *mockComplaintService) History(ctx context.Context, actor domain.Actor, ref string, p domain.Page) ([]*domain.AuditEntry, error) {
	return m.historyFunc(ctx, actor, ref, p)
}

func (m *mockComplaintService) List(ctx context.Context, actor domain.Actor, f complaint.ListFilter, p domain.Page) (*complaint.ListResult, error) {
	return m.listFunc(ctx, actor, f, p)
}

func (m *mockComplaintService) Dashboard(ctx context.Context, actor domain.Actor) (*complaint.Dashboard, error) {
	return m.dashboardFunc(ctx, actor)
}

func (m *mockComplaintService) AssignableStaff(ctx context.Context, actor domain.Actor) ([]*domain.Identity, error) {
	return m.assignableStaffFunc(ctx, actor)
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	loginFunc        func(ctx context.Context, username, password string) (string, string, error)
	refreshTokenFunc func(ctx context.Context, refreshToken string) (string, error)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (accessToken, refreshToken string, err error) {
	return m.loginFunc(ctx, username, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshTokenFunc(ctx, refreshToken)
}
