package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ateliergpr/gpr/internal/model"
)

// appendHistory inserts one historique entry inside the caller's
// transaction. Insertion is the only operation that exists for the
// historique: no update or delete is exposed anywhere in this package.
func appendHistory(ctx context.Context, tx *sql.Tx, pieceID int64, action model.Action, role model.Role, commentaire string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO historique (piece_id, action, role, commentaire) VALUES (?, ?, ?, ?)`,
		pieceID, action, role, commentaire,
	)
	if err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	return nil
}

// ListHistory returns the historique of a piece, newest first.
func ListHistory(ctx context.Context, db *sql.DB, pieceID int64) ([]model.HistoryEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, piece_id, action, date_action, role, commentaire
		 FROM historique WHERE piece_id = ?
		 ORDER BY date_action DESC, id DESC`, pieceID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		var commentaire sql.NullString
		if err := rows.Scan(&e.ID, &e.PieceID, &e.Action, &e.DateAction, &e.Role, &commentaire); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		e.Commentaire = commentaire.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
