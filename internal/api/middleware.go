package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/ateliergpr/gpr/internal/auth"
	"github.com/ateliergpr/gpr/internal/model"
	"github.com/ateliergpr/gpr/internal/store"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionCookie is the name of the session token cookie.
const SessionCookie = "token"

// SessionMiddleware resolves the session cookie to the authoritative
// server-side session row and puts it in the request context. Requests
// without a valid session proceed anonymously: reads are public, and
// role checks happen per route.
func SessionMiddleware(secret string, db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ValidateToken(secret, cookie.Value)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			// A valid signature is not enough: the session row must
			// still exist. Logout deletes it.
			session, err := store.GetSession(r.Context(), db, claims.ID)
			if err != nil {
				slog.Error("resolving session", "error", err)
				jsonError(w, http.StatusInternalServerError, errInternal, "erreur interne")
				return
			}
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession retrieves the session from the context, or nil for
// anonymous requests.
func GetSession(ctx context.Context) *model.Session {
	s, _ := ctx.Value(sessionKey).(*model.Session)
	return s
}

// RequireRole returns middleware admitting only sessions holding one of
// the given roles. No session at all is 401; the wrong role is 403.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := GetSession(r.Context())
			if session == nil {
				jsonError(w, http.StatusUnauthorized, errUnauthenticated, "authentification requise")
				return
			}
			if !slices.Contains(roles, session.Role) {
				jsonError(w, http.StatusForbidden, errForbidden, "accès interdit")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs HTTP requests with method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}
