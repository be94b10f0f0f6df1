package auth

import (
	"context"
	"net/http"
)

type contextKey string

const SubjectContextKey contextKey = "subject"

// Middleware resolves the caller from HTTP Basic credentials. Requests
// without credentials continue as guest; bad credentials get 401.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub := RoleGuest
		if r.Header.Get("Authorization") != "" {
			user, pass, ok := r.BasicAuth()
			if !ok {
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}
			authed, err := s.Authenticate(user, pass)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="ebillmanager"`)
				http.Error(w, "Invalid credentials", http.StatusUnauthorized)
				return
			}
			sub = authed
		}

		ctx := context.WithValue(r.Context(), SubjectContextKey, sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Subject returns the caller stored by Middleware, or guest.
func Subject(ctx context.Context) string {
	if sub, ok := ctx.Value(SubjectContextKey).(string); ok {
		return sub
	}
	return RoleGuest
}

func (s *Service) RequirePermission(obj, act string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub := Subject(r.Context())
		allowed, err := s.Enforce(sub, obj, act)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if !allowed {
			if sub == RoleGuest {
				w.Header().Set("WWW-Authenticate", `Basic realm="ebillmanager"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
