package client

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
)

// RequireLogin rejects requests whose visitor session has no resolved login.
// Must run on routes mounted behind the visitor registry.
func (reg *VisitorRegistry) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := reg.Visitor(w, r)
		if !v.Store.IsLogin() {
			slog.Debug("unauthenticated request to protected resource", "path", r.URL.Path)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewAdminAuth creates the JWT verifier for the admin API.
func NewAdminAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// RequireAdmin checks the verified JWT for an admin role claim.
// Must be used after jwtauth.Verifier and jwtauth.Authenticator.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		roles, _ := claims["roles"].([]interface{})
		for _, role := range roles {
			if s, ok := role.(string); ok && (s == "admin" || s == "superadmin") {
				next.ServeHTTP(w, r)
				return
			}
		}

		slog.Warn("user lacks required role", "path", r.URL.Path)
		http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
	})
}
