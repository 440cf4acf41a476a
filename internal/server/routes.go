package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/complaintdesk/internal/api/v1"
	"github.com/gosuda/complaintdesk/internal/api/ws"
)

func registerAuthRoutes(api huma.API, authSvc v1.AuthService) {
	v1.RegisterAuthRoutes(api, authSvc)
}

func registerAPIRoutes(api huma.API, complaints v1.ComplaintService) {
	v1.RegisterComplaintRoutes(api, complaints)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/complaints", hub.ServeComplaints)
}
