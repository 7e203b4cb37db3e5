package model

import "time"

// Piece represents a tracked spare part. Each piece is an individual
// physical unit identified by its public code (Identifiant), not a
// quantity line. Pieces are never hard-deleted.
type Piece struct {
	ID                int64     `json:"id"`
	Identifiant       string    `json:"identifiant"`
	TypePiece         string    `json:"type_piece"`
	Statut            Statut    `json:"statut"`
	Localisation      *string   `json:"localisation"`
	DateEntree        string    `json:"date_entree,omitempty"`
	Origine           string    `json:"origine,omitempty"`
	QRFilename        string    `json:"qr_filename,omitempty"`
	TauxEndommagement int       `json:"taux_endommagement"`
	Commentaire       string    `json:"commentaire,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Statut is the damage-assessment state of a piece. There is no
// workflow ordering: any statut may follow any other.
type Statut string

const (
	StatutUnset          Statut = ""
	StatutReparable      Statut = "reparable"
	StatutNonReparable   Statut = "non_reparable"
	StatutCannibalisable Statut = "cannibalisable"
)

// Statuts lists the assignable (non-empty) statuses.
var Statuts = []Statut{StatutReparable, StatutNonReparable, StatutCannibalisable}

// Valid reports whether s is a known statut, including unset.
func (s Statut) Valid() bool {
	switch s {
	case StatutUnset, StatutReparable, StatutNonReparable, StatutCannibalisable:
		return true
	}
	return false
}
