package api

import (
	"database/sql"
	"net/http"

	"github.com/ateliergpr/gpr/internal/model"
	"github.com/ateliergpr/gpr/internal/qr"
)

// route binds a mux pattern to a handler and the roles allowed to call
// it. A nil role list means the route is public (anonymous included).
type route struct {
	pattern string
	roles   []model.Role
	handler http.HandlerFunc
}

// NewRouter creates the API router with all endpoints registered. The
// route table is the whole access policy: item creation is maintenance,
// moves are logistics, status assessment is maintenance, reads are open.
func NewRouter(db *sql.DB, secret string, renderer *qr.Renderer) http.Handler {
	authHandler := &AuthHandler{DB: db, Secret: secret}
	piecesHandler := &PiecesHandler{DB: db, QR: renderer}
	historyHandler := &HistoryHandler{DB: db}
	indicatorsHandler := &IndicatorsHandler{DB: db}

	routes := []route{
		{"POST /api/login", nil, authHandler.Login},
		{"GET /api/logout", nil, authHandler.Logout},
		{"GET /api/me", nil, authHandler.Me},

		{"POST /api/piece", []model.Role{model.RoleMaintenance}, piecesHandler.Create},
		{"GET /api/pieces", nil, piecesHandler.List},
		{"GET /api/piece/{identifiant}", nil, piecesHandler.Get},
		{"POST /api/piece/{id}/localisation", []model.Role{model.RoleLogistics}, piecesHandler.UpdateLocalisation},
		{"POST /api/piece/{id}/statut", []model.Role{model.RoleMaintenance}, piecesHandler.UpdateStatut},

		{"GET /api/historique/{id}", nil, historyHandler.List},
		{"GET /api/indicateurs", nil, indicatorsHandler.Get},
	}

	session := SessionMiddleware(secret, db)

	mux := http.NewServeMux()
	for _, rt := range routes {
		var handler http.Handler = rt.handler
		if rt.roles != nil {
			handler = RequireRole(rt.roles...)(handler)
		}
		mux.Handle(rt.pattern, session(handler))
	}

	return mux
}
