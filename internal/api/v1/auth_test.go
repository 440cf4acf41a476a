package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/complaintdesk/internal/api/v1"
	"github.com/gosuda/complaintdesk/internal/auth"
)

// ---------------------------------------------------------------------------
// POST /auth/login
// ---------------------------------------------------------------------------

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		authSvc := &mockAuthService{
			loginFunc: func(_ context.Context, username, password string) (string, string, error) {
				assert.Equal(t, "acme_consumer", username)
				assert.Equal(t, "secretpw1", password)
				return "access-tok", "refresh-tok", nil
			},
		}

		v1.RegisterAuthRoutes(api, authSvc)

		resp := api.Post("/auth/login", map[string]any{
			"username": "acme_consumer",
			"password": "secretpw1",
		})

		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "access-tok", body.AccessToken)
		assert.Equal(t, "refresh-tok", body.RefreshToken)
	})

	t.Run("invalid_credentials", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		authSvc := &mockAuthService{
			loginFunc: func(context.Context, string, string) (string, string, error) {
				return "", "", fmt.Errorf("auth.Login: %w", auth.ErrInvalidCredentials)
			},
		}

		v1.RegisterAuthRoutes(api, authSvc)

		resp := api.Post("/auth/login", map[string]any{
			"username": "acme_consumer",
			"password": "wrong-pw",
		})

		assert.Equal(t, http.StatusUnauthorized, resp.Code)

		var errBody map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
		assert.EqualValues(t, http.StatusUnauthorized, errBody["status"])
	})

	t.Run("storage_failure_is_not_exposed", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		authSvc := &mockAuthService{
			loginFunc: func(context.Context, string, string) (string, string, error) {
				return "", "", errors.New("dial tcp 10.0.0.5:5432: connection refused")
			},
		}

		v1.RegisterAuthRoutes(api, authSvc)

		resp := api.Post("/auth/login", map[string]any{
			"username": "acme_consumer",
			"password": "secretpw1",
		})

		assert.Equal(t, http.StatusInternalServerError, resp.Code)
		assert.NotContains(t, resp.Body.String(), "10.0.0.5")
	})

	t.Run("missing_username", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterAuthRoutes(api, &mockAuthService{})

		resp := api.Post("/auth/login", map[string]any{
			"password": "secretpw1",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// POST /auth/refresh
// ---------------------------------------------------------------------------

func TestRefreshToken(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		authSvc := &mockAuthService{
			refreshTokenFunc: func(_ context.Context, rt string) (string, error) {
				assert.Equal(t, "refresh-tok", rt)
				return "new-access", nil
			},
		}

		v1.RegisterAuthRoutes(api, authSvc)

		resp := api.Post("/auth/refresh", map[string]any{"refresh_token": "refresh-tok"})

		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			AccessToken string `json:"access_token"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "new-access", body.AccessToken)
	})

	t.Run("invalid_token", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		authSvc := &mockAuthService{
			refreshTokenFunc: func(context.Context, string) (string, error) {
				return "", fmt.Errorf("auth.RefreshToken: %w", auth.ErrInvalidToken)
			},
		}

		v1.RegisterAuthRoutes(api, authSvc)

		resp := api.Post("/auth/refresh", map[string]any{"refresh_token": "bogus"})

		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}
