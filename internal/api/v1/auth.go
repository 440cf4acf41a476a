package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/complaintdesk/internal/auth"
)

type LoginInput struct {
	Body struct {
		Username string `json:"username" minLength:"1" maxLength:"150" doc:"Username"`
		Password string `json:"password" minLength:"1" maxLength:"128" doc:"Password"` //nolint:gosec // G117: login credential DTO
	}
}

type LoginOutput struct {
	Body struct {
		AccessToken  string `json:"access_token"`  //nolint:gosec // G117: auth response DTO
		RefreshToken string `json:"refresh_token"` //nolint:gosec // G117: auth response DTO
	}
}

type RefreshInput struct {
	Body struct {
		RefreshToken string `json:"refresh_token" minLength:"1" doc:"Refresh token"` //nolint:gosec // G117: token refresh DTO
	}
}

type RefreshOutput struct {
	Body struct {
		AccessToken string `json:"access_token"` //nolint:gosec // G117: auth response DTO
	}
}

func RegisterAuthRoutes(api huma.API, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Login with username and password",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
		accessToken, refreshToken, err := authSvc.Login(ctx, input.Body.Username, input.Body.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				return nil, huma.Error401Unauthorized("invalid username or password")
			}
			log.Error().Err(err).Msg("api: login")
			return nil, huma.Error500InternalServerError("login failed")
		}

		out := &LoginOutput{}
		out.Body.AccessToken = accessToken
		out.Body.RefreshToken = refreshToken
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refresh-token",
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Summary:     "Refresh access token",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *RefreshInput) (*RefreshOutput, error) {
		accessToken, err := authSvc.RefreshToken(ctx, input.Body.RefreshToken)
		if err != nil {
			return nil, huma.Error401Unauthorized("invalid or expired refresh token")
		}

		out := &RefreshOutput{}
		out.Body.AccessToken = accessToken
		return out, nil
	})
}
