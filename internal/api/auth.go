package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/ateliergpr/gpr/internal/auth"
	"github.com/ateliergpr/gpr/internal/model"
	"github.com/ateliergpr/gpr/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB     *sql.DB
	Secret string
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// dummyHash is compared against when the username is unknown, so an
// attacker cannot tell unknown users from wrong passwords by timing.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Login handles POST /api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, errValidation, "corps de requête invalide")
		return
	}

	if req.Username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, errValidation, "nom d'utilisateur et mot de passe requis")
		return
	}

	user, err := store.GetUserByUsername(r.Context(), h.DB, req.Username)
	if err != nil {
		slog.Error("looking up user", "error", err)
		jsonError(w, http.StatusInternalServerError, errInternal, "erreur interne")
		return
	}

	hash := dummyHash
	if user != nil {
		hash = user.PasswordHash
	}

	// One generic failure for unknown user and wrong password alike.
	if !auth.VerifyPassword(hash, req.Password) || user == nil {
		slog.Warn("login failed", "username", req.Username, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, errUnauthenticated, "identifiants invalides")
		return
	}

	token, tokenID, err := auth.GenerateToken(h.Secret, user.Username, user.Role)
	if err != nil {
		slog.Error("generating session token", "error", err)
		jsonError(w, http.StatusInternalServerError, errInternal, "erreur interne")
		return
	}

	if err := store.CreateSession(r.Context(), h.DB, tokenID, user.Username, user.Role); err != nil {
		slog.Error("creating session", "error", err)
		jsonError(w, http.StatusInternalServerError, errInternal, "erreur interne")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(auth.TokenExpiry.Seconds()),
	})

	slog.Info("user logged in", "user", user.Username, "role", user.Role)
	jsonResponse(w, http.StatusOK, map[string]any{"ok": true, "role": user.Role})
}

// Logout handles GET /api/logout. Idempotent: succeeds with or without
// an active session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		if claims, err := auth.ValidateToken(h.Secret, cookie.Value); err == nil {
			if err := store.DeleteSession(r.Context(), h.DB, claims.ID); err != nil {
				slog.Error("deleting session", "error", err)
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	jsonResponse(w, http.StatusOK, map[string]any{"ok": true})
}

type meResponse struct {
	Username *string     `json:"username"`
	Role     *model.Role `json:"role"`
}

// Me handles GET /api/me: the identity of the active session, or nulls.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := GetSession(r.Context())
	if session == nil {
		jsonResponse(w, http.StatusOK, meResponse{})
		return
	}
	jsonResponse(w, http.StatusOK, meResponse{Username: &session.Username, Role: &session.Role})
}
