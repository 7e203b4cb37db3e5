package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ateliergpr/gpr/internal/model"
	"github.com/ateliergpr/gpr/internal/store"
)

// HistoryHandler serves the historique of a piece.
type HistoryHandler struct {
	DB *sql.DB
}

// List handles GET /api/historique/{id}, newest first.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errValidation, "id de pièce invalide")
		return
	}

	entries, err := store.ListHistory(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("listing history", "piece_id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, errInternal, "erreur interne")
		return
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}
