package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gosuda/complaintdesk/internal/auth"
)

// Auth rejects requests without a valid access token and stores the token's
// user ID on the context. Browsers cannot set headers on a websocket
// handshake, so an access_token query parameter is accepted as well.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractBearer(r)
			if tok == "" {
				tok = r.URL.Query().Get("access_token")
			}
			if tok != "" {
				userID, err := auth.AccessUserID(jwtSecret, tok)
				if err == nil {
					ctx := context.WithValue(r.Context(), ContextKeyUserID, userID)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`, http.StatusUnauthorized)
		})
	}
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return h[7:]
	}
	return ""
}
