package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	v1 "github.com/gosuda/complaintdesk/internal/api/v1"
	"github.com/gosuda/complaintdesk/internal/api/ws"
	"github.com/gosuda/complaintdesk/internal/config"
	"github.com/gosuda/complaintdesk/internal/metrics"
	"github.com/gosuda/complaintdesk/internal/server/middleware"
)

// Pinger is a dependency checked by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Auth       v1.AuthService
	Complaints v1.ComplaintService
	Actors     middleware.ActorResolver
	Events     ws.Subscriber
	Health     map[string]Pinger
}

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	deps       Deps
}

// New creates a Server with all routes wired. ctx bounds the background
// sweeps of the rate limiters.
func New(ctx context.Context, cfg *config.Config, deps Deps) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger())
	router.Use(chimw.Recoverer)
	router.Use(middleware.Metrics())
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	s := &Server{
		router: router,
		deps:   deps,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           router,
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
		},
	}

	// Mount API routes on /api/v1 with two sub-groups:
	// 1. Unauthenticated group for auth endpoints.
	// 2. Authenticated group for all other endpoints.
	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ctx, cfg.Server.LoginRPS, cfg.Server.LoginBurst))

			authConfig := huma.DefaultConfig("Complaint Desk Auth API", "1.0.0")
			authConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			authAPI := humachi.New(r, authConfig)
			registerAuthRoutes(authAPI, deps.Auth)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT.Secret))
			r.Use(middleware.ResolveActor(deps.Actors))
			r.Use(middleware.RateLimit(ctx, cfg.Server.TenantRPS, cfg.Server.TenantBurst))

			apiConfig := huma.DefaultConfig("Complaint Desk API", "1.0.0")
			apiConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			api := humachi.New(r, apiConfig)
			registerAPIRoutes(api, deps.Complaints)
		})
	})

	router.Route("/ws", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT.Secret))
		r.Use(middleware.ResolveActor(deps.Actors))
		r.Use(middleware.RequireTenant())
		registerWSRoutes(r, ws.NewHub(deps.Events))
	})

	router.Get("/healthz", s.healthz)
	router.Handle("/metrics", metrics.Handler())

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	for name, p := range s.deps.Health {
		if err := p.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("dependency", name).Msg("healthz: dependency unavailable")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, `{"status":"unavailable","dependency":%q}`, name)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
