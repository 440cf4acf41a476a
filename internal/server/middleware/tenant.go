package middleware

import "net/http"

// RequireTenant blocks actors without a tenant identity, and actors whose
// tenant has been deactivated. Routes that go through complaint.Service get
// the same checks there; this guards handlers that read tenant data directly.
func RequireTenant() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromContext(r.Context())
			if !actor.Configured() {
				http.Error(w, `{"title":"Forbidden","status":403,"detail":"identity not configured"}`, http.StatusForbidden)
				return
			}
			if !actor.TenantActive {
				http.Error(w, `{"title":"Forbidden","status":403,"detail":"tenant is inactive"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
