package middleware

import (
	"context"
	"net/http"

	"github.com/arjun/nft-marketplace/backend/internal/auth"
	"github.com/arjun/nft-marketplace/backend/internal/models"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionFromContext returns the session injected by RequireAuth.
func SessionFromContext(ctx context.Context) (models.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(models.Session)
	return sess, ok
}

// RequireAuth validates the session cookie and injects the session into the
// request context.
func RequireAuth(sessions auth.Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookie)
			if err != nil {
				http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
				return
			}

			sess, err := sessions.Get(r.Context(), cookie.Value)
			if err != nil || sess == nil {
				http.Error(w, `{"error":"session expired"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, *sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates a route on the admin resolver. Must run inside
// RequireAuth so the cookie has already been validated.
func RequireAdmin(resolver *auth.AdminResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookie)
			if err != nil || !resolver.IsAdmin(r.Context(), cookie.Value) {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
