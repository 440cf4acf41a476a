package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/complaintdesk/internal/auth"
	"github.com/gosuda/complaintdesk/internal/domain"
	"github.com/gosuda/complaintdesk/internal/metrics"
	"github.com/gosuda/complaintdesk/internal/server/middleware"
)

const testJWTSecret = "test-jwt-secret-for-middleware-tests"

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// contextHandler captures context values set by middleware so tests can
// assert that the correct user and actor were injected.
type contextHandler struct {
	userID uuid.UUID
	actor  domain.Actor
	called bool
}

func (h *contextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.userID, _ = middleware.UserIDFromContext(r.Context())
	h.actor = middleware.ActorFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

// mockResolver is a func-field ActorResolver.
type mockResolver struct {
	resolveFunc func(ctx context.Context, userID uuid.UUID) (domain.Actor, error)
}

func (m *mockResolver) Resolve(ctx context.Context, userID uuid.UUID) (domain.Actor, error) {
	return m.resolveFunc(ctx, userID)
}

func configuredActor(tenantID uuid.UUID, role domain.Role, active bool) domain.Actor {
	return domain.ConfiguredActor(&domain.Identity{
		UserID:   uuid.New(),
		Username: "someone",
		TenantID: tenantID,
		Role:     role,
	}, active)
}

// withActor injects a resolved actor into the request context.
func withActor(r *http.Request, actor domain.Actor) *http.Request {
	return r.WithContext(middleware.WithActor(r.Context(), actor))
}

func newRequest() *http.Request {
	return httptest.NewRequest(http.MethodGet, "/", http.NoBody)
}

// ===========================================================================
// 1. Context helpers
// ===========================================================================

func TestUserIDFromContext(t *testing.T) {
	t.Parallel()

	t.Run("present", func(t *testing.T) {
		t.Parallel()

		want := uuid.New()
		ctx := context.WithValue(context.Background(), middleware.ContextKeyUserID, want)

		got, ok := middleware.UserIDFromContext(ctx)

		require.True(t, ok)
		assert.Equal(t, want, got)
	})

	t.Run("wrong type", func(t *testing.T) {
		t.Parallel()

		ctx := context.WithValue(context.Background(), middleware.ContextKeyUserID, 42)

		got, ok := middleware.UserIDFromContext(ctx)

		assert.False(t, ok)
		assert.Equal(t, uuid.Nil, got)
	})
}

func TestActorFromContext(t *testing.T) {
	t.Parallel()

	t.Run("absent yields unauthenticated actor", func(t *testing.T) {
		t.Parallel()

		actor := middleware.ActorFromContext(context.Background())
		assert.False(t, actor.Authenticated())
		assert.False(t, actor.Configured())
	})

	t.Run("tenant follows the identity", func(t *testing.T) {
		t.Parallel()

		tenantID := uuid.New()
		ctx := middleware.WithActor(context.Background(), configuredActor(tenantID, domain.RoleSupport, true))

		got, ok := middleware.TenantIDFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, tenantID, got)
	})

	t.Run("unconfigured actor has no tenant", func(t *testing.T) {
		t.Parallel()

		ctx := middleware.WithActor(context.Background(), domain.UnconfiguredActor(uuid.New()))

		_, ok := middleware.TenantIDFromContext(ctx)
		assert.False(t, ok)
	})
}

// ===========================================================================
// 2. RequireTenant middleware
// ===========================================================================

func TestRequireTenant(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		actor      domain.Actor
		wantStatus int
		wantBody   string
	}{
		{name: "configured and active", actor: configuredActor(uuid.New(), domain.RoleConsumer, true), wantStatus: http.StatusOK},
		{name: "no actor", actor: domain.Actor{}, wantStatus: http.StatusForbidden, wantBody: "identity not configured"},
		{name: "unconfigured", actor: domain.UnconfiguredActor(uuid.New()), wantStatus: http.StatusForbidden, wantBody: "identity not configured"},
		{name: "inactive tenant", actor: configuredActor(uuid.New(), domain.RoleManager, false), wantStatus: http.StatusForbidden, wantBody: "tenant is inactive"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			middleware.RequireTenant()(okHandler).ServeHTTP(rec, withActor(newRequest(), tc.actor))

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantBody)
		})
	}
}

// ===========================================================================
// 3. RateLimit middleware
// ===========================================================================

func TestRateLimit_NoTenantInContext_PassesThrough(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimit(t.Context(), 0.001, 1)(okHandler)

	for range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newRequest())
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimit_BurstExceeded_Returns429(t *testing.T) {
	t.Parallel()

	actor := configuredActor(uuid.New(), domain.RoleConsumer, true)
	// Very low rate (effectively zero refill during the test) with burst of 2.
	handler := middleware.RateLimit(t.Context(), 0.001, 2)(okHandler)

	// First two requests consume the burst.
	for i := range 2 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, withActor(newRequest(), actor))
		require.Equalf(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withActor(newRequest(), actor))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestRateLimit_IndependentPerTenant(t *testing.T) {
	t.Parallel()

	tenantA := uuid.New()
	handler := middleware.RateLimit(t.Context(), 0.001, 1)(okHandler)

	recA := httptest.NewRecorder()
	handler.ServeHTTP(recA, withActor(newRequest(), configuredActor(tenantA, domain.RoleConsumer, true)))
	require.Equal(t, http.StatusOK, recA.Code)

	// A second user of the same tenant shares the bucket.
	recA2 := httptest.NewRecorder()
	handler.ServeHTTP(recA2, withActor(newRequest(), configuredActor(tenantA, domain.RoleSupport, true)))
	assert.Equal(t, http.StatusTooManyRequests, recA2.Code)

	recB := httptest.NewRecorder()
	handler.ServeHTTP(recB, withActor(newRequest(), configuredActor(uuid.New(), domain.RoleConsumer, true)))
	assert.Equal(t, http.StatusOK, recB.Code)
}

func TestRateLimitByIP(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimitByIP(t.Context(), 0.001, 1)(okHandler)

	send := func(remote string) int {
		req := newRequest()
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1111"))
	// Same host on a different source port is the same client.
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:2222"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1111"))
}

// ===========================================================================
// 4. Auth middleware
// ===========================================================================

func TestAuth_ValidToken_PopulatesContext(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	token, err := auth.IssueAccessToken(testJWTSecret, userID, 15*time.Minute)
	require.NoError(t, err)

	capture := &contextHandler{}
	handler := middleware.Auth(testJWTSecret)(capture)

	req := newRequest()
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.True(t, capture.called, "inner handler must be called")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, capture.userID)
}

func TestAuth_QueryToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	token, err := auth.IssueAccessToken(testJWTSecret, userID, time.Minute)
	require.NoError(t, err)

	capture := &contextHandler{}
	req := httptest.NewRequest(http.MethodGet, "/ws/complaints?access_token="+token, http.NoBody)
	rec := httptest.NewRecorder()

	middleware.Auth(testJWTSecret)(capture).ServeHTTP(rec, req)

	require.True(t, capture.called)
	assert.Equal(t, userID, capture.userID)
}

func TestAuth_Rejections(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	expired, err := auth.IssueAccessToken(testJWTSecret, userID, -time.Second)
	require.NoError(t, err)
	wrongSecret, err := auth.IssueAccessToken("another-secret", userID, time.Minute)
	require.NoError(t, err)
	refresh, err := auth.IssueRefreshToken(testJWTSecret, userID, time.Minute)
	require.NoError(t, err)
	valid, err := auth.IssueAccessToken(testJWTSecret, userID, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "no credentials", header: ""},
		{name: "garbage token", header: "Bearer not-a-jwt"},
		{name: "expired", header: "Bearer " + expired},
		{name: "wrong secret", header: "Bearer " + wrongSecret},
		{name: "refresh token", header: "Bearer " + refresh},
		{name: "basic scheme", header: "Basic " + valid},
		{name: "bearer without token", header: "Bearer "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			capture := &contextHandler{}
			req := newRequest()
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			middleware.Auth(testJWTSecret)(capture).ServeHTTP(rec, req)

			assert.False(t, capture.called)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "missing or invalid credentials")
		})
	}
}

func TestAuth_BearerCaseInsensitive(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueAccessToken(testJWTSecret, uuid.New(), time.Minute)
	require.NoError(t, err)

	for _, scheme := range []string{"Bearer ", "bearer ", "BEARER "} {
		req := newRequest()
		req.Header.Set("Authorization", scheme+token)
		rec := httptest.NewRecorder()

		middleware.Auth(testJWTSecret)(okHandler).ServeHTTP(rec, req)
		assert.Equalf(t, http.StatusOK, rec.Code, "scheme %q", scheme)
	}
}

// ===========================================================================
// 5. ResolveActor middleware
// ===========================================================================

func TestResolveActor(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	tenantID := uuid.New()

	tests := []struct {
		name       string
		resolve    func(ctx context.Context, userID uuid.UUID) (domain.Actor, error)
		wantStatus int
		wantCalled bool
	}{
		{
			name: "configured actor reaches handler",
			resolve: func(_ context.Context, id uuid.UUID) (domain.Actor, error) {
				return domain.ConfiguredActor(&domain.Identity{UserID: id, TenantID: tenantID, Role: domain.RoleSupport}, true), nil
			},
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name: "unconfigured actor reaches handler",
			resolve: func(_ context.Context, id uuid.UUID) (domain.Actor, error) {
				return domain.UnconfiguredActor(id), nil
			},
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name: "unauthenticated",
			resolve: func(context.Context, uuid.UUID) (domain.Actor, error) {
				return domain.Actor{}, domain.ErrUnauthenticated
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "storage failure",
			resolve: func(context.Context, uuid.UUID) (domain.Actor, error) {
				return domain.Actor{}, errors.New("connection refused")
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			capture := &contextHandler{}
			handler := middleware.ResolveActor(&mockResolver{resolveFunc: tc.resolve})(capture)

			ctx := context.WithValue(context.Background(), middleware.ContextKeyUserID, userID)
			req := newRequest().WithContext(ctx)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantCalled, capture.called)
			if tc.wantCalled {
				assert.Equal(t, userID, capture.actor.UserID)
			}
		})
	}
}

// ===========================================================================
// 6. Metrics middleware
// ===========================================================================

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Use(middleware.Metrics())
	r.Get("/metrics-test/{ref}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/metrics-test/{ref}", "418")
	before := testutil.ToFloat64(counter)

	for _, ref := range []string{"ACM-1", "ACM-2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics-test/"+ref, http.NoBody))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.InDelta(t, before+2, testutil.ToFloat64(counter), 1e-9)
}
