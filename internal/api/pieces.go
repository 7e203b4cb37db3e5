package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ateliergpr/gpr/internal/model"
	"github.com/ateliergpr/gpr/internal/qr"
	"github.com/ateliergpr/gpr/internal/store"
)

// PiecesHandler handles piece lifecycle endpoints.
type PiecesHandler struct {
	DB *sql.DB
	QR *qr.Renderer
}

type createPieceRequest struct {
	TypePiece         string       `json:"type_piece"`
	Statut            model.Statut `json:"statut"`
	DateEntree        string       `json:"date_entree"`
	Origine           string       `json:"origine"`
	TauxEndommagement int          `json:"taux_endommagement"`
	Commentaire       string       `json:"commentaire"`
}

// Create handles POST /api/piece. The identifiant is always assigned
// server-side; client-proposed codes are ignored so the code space
// stays uniformly random.
func (h *PiecesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPieceRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, errValidation, "corps de requête invalide")
		return
	}

	if req.TypePiece == "" {
		jsonError(w, http.StatusBadRequest, errValidation, "type_piece requis")
		return
	}
	if req.Statut == model.StatutUnset || !req.Statut.Valid() {
		jsonError(w, http.StatusBadRequest, errValidation, "statut requis")
		return
	}
	if req.TauxEndommagement < 0 || req.TauxEndommagement > 100 {
		jsonError(w, http.StatusBadRequest, errValidation, "taux_endommagement doit être entre 0 et 100")
		return
	}

	identifiant := store.NewIdentifiant()

	// The label file is written before the row exists; a leftover file
	// after a failed insert is harmless, the reverse is not.
	filename, err := h.QR.Render(identifiant)
	if err != nil {
		slog.Error("rendering QR label", "identifiant", identifiant, "error", err)
		jsonError(w, http.StatusInternalServerError, errInternal, "erreur interne")
		return
	}

	session := GetSession(r.Context())
	piece, err := store.CreatePiece(r.Context(), h.DB, model.Piece{
		Identifiant:       identifiant,
		TypePiece:         req.TypePiece,
		Statut:            req.Statut,
		DateEntree:        req.DateEntree,
		Origine:           req.Origine,
		QRFilename:        filename,
		TauxEndommagement: req.TauxEndommagement,
		Commentaire:       req.Commentaire,
	}, session.Role, "Création + QR")
	if err != nil {
		slog.Error("creating piece", "error", err)
		jsonError(w, http.StatusInternalServerError, errInternal, "erreur interne")
		return
	}

	slog.Info("piece created", "identifiant", piece.Identifiant, "type", piece.TypePiece, "by", session.Username)
	jsonResponse(w, http.StatusCreated, map[string]any{"ok": true, "identifiant": piece.Identifiant})
}

// List handles GET /api/pieces, newest first, optionally ?statut= filtered.
func (h *PiecesHandler) List(w http.ResponseWriter, r *http.Request) {
	statut := model.Statut(r.URL.Query().Get("statut"))
	if !statut.Valid() {
		jsonError(w, http.StatusBadRequest, errValidation, "statut inconnu")
		return
	}

	pieces, err := store.ListPieces(r.Context(), h.DB, statut)
	if err != nil {
		slog.Error("listing pieces", "error", err)
		jsonError(w, http.StatusInternalServerError, errInternal, "erreur interne")
		return
	}
	if pieces == nil {
		pieces = []model.Piece{}
	}
	jsonResponse(w, http.StatusOK, pieces)
}

// Get handles GET /api/piece/{identifiant}.
func (h *PiecesHandler) Get(w http.ResponseWriter, r *http.Request) {
	piece, err := store.GetPieceByIdentifiant(r.Context(), h.DB, r.PathValue("identifiant"))
	if err != nil {
		slog.Error("getting piece", "error", err)
		jsonError(w, http.StatusInternalServerError, errInternal, "erreur interne")
		return
	}
	if piece == nil {
		jsonError(w, http.StatusNotFound, errNotFound, "pièce introuvable")
		return
	}
	jsonResponse(w, http.StatusOK, piece)
}

type updateLocalisationRequest struct {
	Localisation string `json:"localisation"`
	Commentaire  string `json:"commentaire"`
}

// UpdateLocalisation handles POST /api/piece/{id}/localisation.
func (h *PiecesHandler) UpdateLocalisation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errValidation, "id de pièce invalide")
		return
	}

	var req updateLocalisationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, errValidation, "corps de requête invalide")
		return
	}

	if req.Localisation == "" {
		jsonError(w, http.StatusBadRequest, errValidation, "localisation obligatoire")
		return
	}

	session := GetSession(r.Context())
	err = store.UpdateLocalisation(r.Context(), h.DB, id, req.Localisation, req.Commentaire, session.Role)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, errNotFound, "pièce introuvable")
		return
	}
	if err != nil {
		slog.Error("updating localisation", "piece_id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, errInternal, "erreur interne")
		return
	}

	slog.Info("piece moved", "piece_id", id, "localisation", req.Localisation, "by", session.Username)
	jsonResponse(w, http.StatusOK, map[string]any{"ok": true})
}

type updateStatutRequest struct {
	Statut            model.Statut `json:"statut"`
	TauxEndommagement *int         `json:"taux_endommagement"`
	Commentaire       string       `json:"commentaire"`
}

// UpdateStatut handles POST /api/piece/{id}/statut. Any statut may
// follow any other: the assessment is a flat enumeration, not a
// workflow.
func (h *PiecesHandler) UpdateStatut(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errValidation, "id de pièce invalide")
		return
	}

	var req updateStatutRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, errValidation, "corps de requête invalide")
		return
	}

	if req.Statut == model.StatutUnset || !req.Statut.Valid() {
		jsonError(w, http.StatusBadRequest, errValidation, "statut requis")
		return
	}
	if req.TauxEndommagement != nil && (*req.TauxEndommagement < 0 || *req.TauxEndommagement > 100) {
		jsonError(w, http.StatusBadRequest, errValidation, "taux_endommagement doit être entre 0 et 100")
		return
	}

	session := GetSession(r.Context())
	err = store.UpdateStatut(r.Context(), h.DB, id, req.Statut, req.TauxEndommagement, req.Commentaire, session.Role)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, errNotFound, "pièce introuvable")
		return
	}
	if err != nil {
		slog.Error("updating statut", "piece_id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, errInternal, "erreur interne")
		return
	}

	slog.Info("piece assessed", "piece_id", id, "statut", req.Statut, "by", session.Username)
	jsonResponse(w, http.StatusOK, map[string]any{"ok": true})
}
