package middlewares

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"
)

// Role names carried in the token's "roles" claim. Staff can write
// forms/questions/options/answers; admins can additionally read analytics.
const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// RequireRole authorizes the bearer token and checks that its "roles" claim
// contains the wanted role.
func RequireRole(secret, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(oauth.Authorize(secret, nil), hasRole(role)).Handler(next)
	}
}

func hasRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(oauth.ClaimsContext).(map[string]string)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			found := false
			if rolesClaim, ok := claims["roles"]; ok {
				for _, claimed := range strings.Split(rolesClaim, ",") {
					if strings.TrimSpace(claimed) == role {
						found = true
						break
					}
				}
			}

			if !found {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
