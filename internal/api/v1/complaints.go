package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/complaintdesk/internal/complaint"
	"github.com/gosuda/complaintdesk/internal/domain"
	"github.com/gosuda/complaintdesk/internal/server/middleware"
)

// ComplaintView is the wire form of a complaint.
type ComplaintView struct {
	Reference       string     `json:"reference"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Priority        string     `json:"priority"`
	Status          string     `json:"status"`
	SubmittedBy     *uuid.UUID `json:"submitted_by,omitempty"`
	LoggedBy        *uuid.UUID `json:"logged_by,omitempty"`
	AssignedTo      *uuid.UUID `json:"assigned_to,omitempty"`
	ResolutionNotes string     `json:"resolution_notes"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	Version         int64      `json:"version"`
}

func complaintView(c *domain.Complaint) *ComplaintView {
	return &ComplaintView{
		Reference:       c.Reference,
		Title:           c.Title,
		Description:     c.Description,
		Category:        c.Category,
		Priority:        string(c.Priority),
		Status:          string(c.Status),
		SubmittedBy:     c.SubmittedBy,
		LoggedBy:        c.LoggedBy,
		AssignedTo:      c.AssignedTo,
		ResolutionNotes: c.ResolutionNotes,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		ResolvedAt:      c.ResolvedAt,
		ClosedAt:        c.ClosedAt,
		Version:         c.Version,
	}
}

// AuditEntryView is the wire form of one history entry.
type AuditEntryView struct {
	Action    string     `json:"action"`
	ActorID   *uuid.UUID `json:"actor_id,omitempty"`
	Details   string     `json:"details"`
	OldValue  string     `json:"old_value,omitempty"`
	NewValue  string     `json:"new_value,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type StaffView struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}

type ComplaintOutput struct {
	Body *ComplaintView
}

type CreateComplaintInput struct {
	Body struct {
		Title       string     `json:"title" minLength:"1" maxLength:"255" doc:"Short summary"`
		Description string     `json:"description,omitempty" doc:"Full description"`
		Category    string     `json:"category,omitempty" maxLength:"100" doc:"Free-form category"`
		Priority    string     `json:"priority,omitempty" enum:"low,medium,high" doc:"Defaults to medium"`
		OnBehalfOf  *uuid.UUID `json:"on_behalf_of,omitempty" doc:"Consumer the complaint is logged for (staff only)"`
	}
}

type CreateComplaintOutput struct {
	Status int
	Body   *ComplaintView
}

type ListComplaintsInput struct {
	Status   string `query:"status" enum:"open,in_progress,resolved,closed" doc:"Filter by status"`
	Priority string `query:"priority" enum:"low,medium,high" doc:"Filter by priority"`
	Search   string `query:"q" maxLength:"200" doc:"Matches reference, title and description"`
	Limit    int    `query:"limit" minimum:"0" maximum:"100" doc:"Page size (default 10)"`
	Offset   int    `query:"offset" minimum:"0" doc:"Items to skip"`
}

type ListComplaintsOutput struct {
	Body struct {
		Items  []*ComplaintView `json:"items"`
		Total        int            `json:"total"`
		Limit  int              `json:"limit"`
		Offset int              `json:"offset"`
	}
}

type ComplaintRefInput struct {
	Ref string `path:"ref" maxLength:"32" doc:"Complaint reference number"`
}

type ChangeStatusInput struct {
	Ref  string `path:"ref" maxLength:"32" doc:"Complaint reference number"`
	Body struct {
		Status string `json:"status" minLength:"1" doc:"Target status"`
	}
}

type AssignInput struct {
	Ref  string `path:"ref" maxLength:"32" doc:"Complaint reference number"`
	Body struct {
		AssigneeID uuid.UUID `json:"assignee_id" doc:"Support or manager user to assign"`
	}
}

type ResolutionInput struct {
	Ref  string `path:"ref" maxLength:"32" doc:"Complaint reference number"`
	Body struct {
		Notes string `json:"notes" minLength:"1" doc:"Resolution notes (replaces any existing notes)"`
	}
}

type HistoryInput struct {
	Ref    string `path:"ref" maxLength:"32" doc:"Complaint reference number"`
	Limit  int    `query:"limit" minimum:"0" maximum:"100" doc:"Page size (default 20)"`
	Offset int    `query:"offset" minimum:"0" doc:"Entries to skip"`
}

type HistoryOutput struct {
	Body []*AuditEntryView
}

type DashboardOutput struct {
	Body struct {
		Role         string         `json:"role"`
		Total        int            `json:"total"`
		ByStatus     map[string]int `json:"by_status"`
		Unassigned   int            `json:"unassigned,omitempty"`
		AssignedToMe int            `json:"assigned_to_me,omitempty"`
	}
}

type StaffOutput struct {
	Body []*StaffView
}

func RegisterComplaintRoutes(api huma.API, svc ComplaintService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-complaint",
		Method:        http.MethodPost,
		Path:          "/complaints",
		Summary:       "File a complaint",
		Tags:          []string{"Complaints"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateComplaintInput) (*CreateComplaintOutput, error) {
		c, err := svc.Create(ctx, middleware.ActorFromContext(ctx), complaint.CreateInput{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Category:    input.Body.Category,
			Priority:    input.Body.Priority,
			OnBehalfOf:  input.Body.OnBehalfOf,
		})
		if err != nil {
			return nil, serviceError("create-complaint", err)
		}
		return &CreateComplaintOutput{Status: http.StatusCreated, Body: complaintView(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-complaints",
		Method:      http.MethodGet,
		Path:        "/complaints",
		Summary:     "List complaints visible to the caller",
		Tags:        []string{"Complaints"},
	}, func(ctx context.Context, input *ListComplaintsInput) (*ListComplaintsOutput, error) {
		res, err := svc.List(ctx, middleware.ActorFromContext(ctx), complaint.ListFilter{
			Status:   input.Status,
			Priority: input.Priority,
			Search:   input.Search,
		}, domain.Page{Limit: input.Limit, Offset: input.Offset})
		if err != nil {
			return nil, serviceError("list-complaints", err)
		}

		out := &ListComplaintsOutput{}
		out.Body.Items = make([]*ComplaintView, 0, len(res.Items))
		for _, c := range res.Items {
			out.Body.Items = append(out.Body.Items, complaintView(c))
		}
		out.Body.Total = res.Total
		out.Body.Limit = res.Page.Limit
		out.Body.Offset = res.Page.Offset
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-complaint",
		Method:      http.MethodGet,
		Path:        "/complaints/{ref}",
		Summary:     "Get a complaint by reference",
		Tags:        []string{"Complaints"},
	}, func(ctx context.Context, input *ComplaintRefInput) (*ComplaintOutput, error) {
		c, err := svc.Get(ctx, middleware.ActorFromContext(ctx), input.Ref)
		if err != nil {
			return nil, complaintError("get-complaint", err)
		}
		return &ComplaintOutput{Body: complaintView(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "change-complaint-status",
		Method:      http.MethodPatch,
		Path:        "/complaints/{ref}/status",
		Summary:     "Move a complaint to another status",
		Tags:        []string{"Complaints"},
	}, func(ctx context.Context, input *ChangeStatusInput) (*ComplaintOutput, error) {
		c, err := svc.ChangeStatus(ctx, middleware.ActorFromContext(ctx), input.Ref, input.Body.Status)
		if err != nil {
			return nil, complaintError("change-complaint-status", err)
		}
		return &ComplaintOutput{Body: complaintView(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-complaint",
		Method:      http.MethodPost,
		Path:        "/complaints/{ref}/assign",
		Summary:     "Assign a complaint to a staff member",
		Tags:        []string{"Complaints"},
	}, func(ctx context.Context, input *AssignInput) (*ComplaintOutput, error) {
		c, err := svc.Assign(ctx, middleware.ActorFromContext(ctx), input.Ref, input.Body.AssigneeID)
		if err != nil {
			return nil, complaintError("assign-complaint", err)
		}
		return &ComplaintOutput{Body: complaintView(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-resolution-notes",
		Method:      http.MethodPost,
		Path:        "/complaints/{ref}/resolution",
		Summary:     "Record resolution notes",
		Tags:        []string{"Complaints"},
	}, func(ctx context.Context, input *ResolutionInput) (*ComplaintOutput, error) {
		c, err := svc.AddResolutionNotes(ctx, middleware.ActorFromContext(ctx), input.Ref, input.Body.Notes)
		if err != nil {
			return nil, complaintError("add-resolution-notes", err)
		}
		return &ComplaintOutput{Body: complaintView(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "close-complaint",
		Method:      http.MethodPost,
		Path:        "/complaints/{ref}/close",
		Summary:     "Confirm the resolution and close the complaint",
		Tags:        []string{"Complaints"},
	}, func(ctx context.Context, input *ComplaintRefInput) (*ComplaintOutput, error) {
		c, err := svc.Close(ctx, middleware.ActorFromContext(ctx), input.Ref)
		if err != nil {
			return nil, complaintError("close-complaint", err)
		}
		return &ComplaintOutput{Body: complaintView(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complaint-history",
		Method:      http.MethodGet,
		Path:        "/complaints/{ref}/history",
		Summary:     "Audit history of a complaint, newest first",
		Tags:        []string{"Complaints"},
	}, func(ctx context.Context, input *HistoryInput) (*HistoryOutput, error) {
		entries, err := svc.History(ctx, middleware.ActorFromContext(ctx), input.Ref,
			domain.Page{Limit: input.Limit, Offset: input.Offset})
		if err != nil {
			return nil, complaintError("complaint-history", err)
		}

		out := &HistoryOutput{Body: make([]*AuditEntryView, 0, len(entries))}
		for _, e := range entries {
			out.Body = append(out.Body, &AuditEntryView{
				Action:    string(e.Action),
				ActorID:   e.ActorID,
				Details:   e.Details,
				OldValue:  e.OldValue,
				NewValue:  e.NewValue,
				CreatedAt: e.CreatedAt,
			})
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboard",
		Summary:     "Complaint counts for the caller",
		Tags:        []string{"Complaints"},
	}, func(ctx context.Context, _ *struct{}) (*DashboardOutput, error) {
		d, err := svc.Dashboard(ctx, middleware.ActorFromContext(ctx))
		if err != nil {
			return nil, serviceError("dashboard", err)
		}

		out := &DashboardOutput{}
		out.Body.Role = string(d.Role)
		out.Body.Total = d.Total
		out.Body.ByStatus = make(map[string]int, len(d.ByStatus))
		for st, n := range d.ByStatus {
			out.Body.ByStatus[string(st)] = n
		}
		out.Body.Unassigned = d.Unassigned
		out.Body.AssignedToMe = d.AssignedToMe
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assignable-staff",
		Method:      http.MethodGet,
		Path:        "/staff",
		Summary:     "Staff a complaint can be assigned to",
		Tags:        []string{"Complaints"},
	}, func(ctx context.Context, _ *struct{}) (*StaffOutput, error) {
		staff, err := svc.AssignableStaff(ctx, middleware.ActorFromContext(ctx))
		if err != nil {
			return nil, serviceError("assignable-staff", err)
		}

		out := &StaffOutput{Body: make([]*StaffView, 0, len(staff))}
		for _, id := range staff {
			out.Body = append(out.Body, &StaffView{UserID: id.UserID, Username: id.Username, Role: string(id.Role)})
		}
		return out, nil
	})
}
