package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/ateliergpr/gpr/internal/model"
	"github.com/ateliergpr/gpr/internal/store"
)

// IndicatorsHandler serves the dashboard counters.
type IndicatorsHandler struct {
	DB *sql.DB
}

type indicatorsResponse struct {
	Total          int `json:"total"`
	Reparable      int `json:"reparable"`
	NonReparable   int `json:"non_reparable"`
	Cannibalisable int `json:"cannibalisable"`
}

// Get handles GET /api/indicateurs. Counters are computed by scanning
// the piece table at query time; nothing is maintained incrementally,
// so the total always matches the row count.
func (h *IndicatorsHandler) Get(w http.ResponseWriter, r *http.Request) {
	total, counts, err := store.CountByStatut(r.Context(), h.DB)
	if err != nil {
		slog.Error("computing indicators", "error", err)
		jsonError(w, http.StatusInternalServerError, errInternal, "erreur interne")
		return
	}

	jsonResponse(w, http.StatusOK, indicatorsResponse{
		Total:          total,
		Reparable:      counts[model.StatutReparable],
		NonReparable:   counts[model.StatutNonReparable],
		Cannibalisable: counts[model.StatutCannibalisable],
	})
}
