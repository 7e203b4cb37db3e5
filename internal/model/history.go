package model

import "time"

// HistoryEntry is one immutable audit record for a piece. Entries are
// only ever inserted; the store exposes no update or delete for them.
type HistoryEntry struct {
	ID          int64     `json:"id"`
	PieceID     int64     `json:"piece_id"`
	Action      Action    `json:"action"`
	DateAction  time.Time `json:"date_action"`
	Role        Role      `json:"role"`
	Commentaire string    `json:"commentaire,omitempty"`
}

// Action is the kind of mutation recorded in the historique.
type Action string

const (
	ActionCreation     Action = "CREATION"
	ActionLocalisation Action = "LOCALISATION"
	ActionStatut       Action = "STATUT"
)
