package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ateliergpr/gpr/internal/model"
)

// NewIdentifiant mints a public piece code of the form P-3FA9C21B.
// Random rather than sequential, so the code space leaks nothing about
// how many pieces exist.
func NewIdentifiant() string {
	u := uuid.New()
	return "P-" + strings.ToUpper(hex.EncodeToString(u[:4]))
}

// CreatePiece inserts a new piece and its CREATION history entry in one
// transaction: neither row is ever visible without the other.
func CreatePiece(ctx context.Context, db *sql.DB, p model.Piece, role model.Role, commentaire string) (*model.Piece, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO piece (identifiant, type_piece, statut, localisation, date_entree,
		                    origine, qr_filename, taux_endommagement, commentaire)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Identifiant, p.TypePiece, p.Statut, p.Localisation, p.DateEntree,
		p.Origine, p.QRFilename, p.TauxEndommagement, p.Commentaire,
	)
	if err != nil {
		return nil, fmt.Errorf("creating piece: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting piece id: %w", err)
	}

	if err := appendHistory(ctx, tx, id, model.ActionCreation, role, commentaire); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing piece creation: %w", err)
	}

	return GetPiece(ctx, db, id)
}

// GetPiece returns a piece by its internal ID, or nil if it does not exist.
func GetPiece(ctx context.Context, db *sql.DB, id int64) (*model.Piece, error) {
	return scanPiece(db.QueryRowContext(ctx,
		`SELECT id, identifiant, type_piece, statut, localisation, date_entree,
		        origine, qr_filename, taux_endommagement, commentaire, created_at
		 FROM piece WHERE id = ?`, id,
	))
}

// GetPieceByIdentifiant returns a piece by its public code, or nil if
// it does not exist.
func GetPieceByIdentifiant(ctx context.Context, db *sql.DB, identifiant string) (*model.Piece, error) {
	return scanPiece(db.QueryRowContext(ctx,
		`SELECT id, identifiant, type_piece, statut, localisation, date_entree,
		        origine, qr_filename, taux_endommagement, commentaire, created_at
		 FROM piece WHERE identifiant = ?`, identifiant,
	))
}

// ListPieces returns all pieces, newest first, optionally filtered by statut.
func ListPieces(ctx context.Context, db *sql.DB, statut model.Statut) ([]model.Piece, error) {
	query := `SELECT id, identifiant, type_piece, statut, localisation, date_entree,
	                 origine, qr_filename, taux_endommagement, commentaire, created_at
	          FROM piece`
	args := []any{}
	if statut != model.StatutUnset {
		query += ` WHERE statut = ?`
		args = append(args, statut)
	}
	query += ` ORDER BY id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing pieces: %w", err)
	}
	defer rows.Close()

	var pieces []model.Piece
	for rows.Next() {
		p, err := scanPieceRow(rows)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, *p)
	}
	return pieces, rows.Err()
}

// UpdateLocalisation moves a piece and records the transition in the
// historique, both in one transaction. Returns ErrNotFound (and writes
// nothing) if the piece does not exist.
func UpdateLocalisation(ctx context.Context, db *sql.DB, pieceID int64, localisation, commentaire string, role model.Role) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var old sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT localisation FROM piece WHERE id = ?`, pieceID,
	).Scan(&old)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading piece localisation: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE piece SET localisation = ? WHERE id = ?`, localisation, pieceID,
	); err != nil {
		return fmt.Errorf("updating localisation: %w", err)
	}

	note := transitionNote(old.String, localisation, commentaire)
	if err := appendHistory(ctx, tx, pieceID, model.ActionLocalisation, role, note); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing localisation update: %w", err)
	}
	return nil
}

// UpdateStatut changes a piece's statut and optionally its damage rate,
// recording the transition in the historique in the same transaction.
// taux may be nil to leave the damage rate unchanged.
func UpdateStatut(ctx context.Context, db *sql.DB, pieceID int64, statut model.Statut, taux *int, commentaire string, role model.Role) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var old model.Statut
	err = tx.QueryRowContext(ctx,
		`SELECT statut FROM piece WHERE id = ?`, pieceID,
	).Scan(&old)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading piece statut: %w", err)
	}

	if taux != nil {
		_, err = tx.ExecContext(ctx,
			`UPDATE piece SET statut = ?, taux_endommagement = ? WHERE id = ?`,
			statut, *taux, pieceID,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE piece SET statut = ? WHERE id = ?`, statut, pieceID,
		)
	}
	if err != nil {
		return fmt.Errorf("updating statut: %w", err)
	}

	note := transitionNote(string(old), string(statut), commentaire)
	if err := appendHistory(ctx, tx, pieceID, model.ActionStatut, role, note); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing statut update: %w", err)
	}
	return nil
}

// CountByStatut returns the total number of pieces and the number per
// statut, computed by scanning the table at call time.
func CountByStatut(ctx context.Context, db *sql.DB) (total int, counts map[model.Statut]int, err error) {
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM piece`).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("counting pieces: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT statut, COUNT(*) FROM piece GROUP BY statut`)
	if err != nil {
		return 0, nil, fmt.Errorf("counting pieces by statut: %w", err)
	}
	defer rows.Close()

	counts = make(map[model.Statut]int)
	for rows.Next() {
		var s model.Statut
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return 0, nil, fmt.Errorf("scanning statut count: %w", err)
		}
		counts[s] = n
	}
	return total, counts, rows.Err()
}

// transitionNote formats a "from -> to" audit note, appending the
// user-supplied comment when present.
func transitionNote(from, to, commentaire string) string {
	if from == "" {
		from = "-"
	}
	note := fmt.Sprintf("%s -> %s", from, to)
	if commentaire != "" {
		note += " (" + commentaire + ")"
	}
	return note
}

func scanPiece(row *sql.Row) (*model.Piece, error) {
	p := &model.Piece{}
	var localisation, dateEntree, origine, qrFilename, commentaire sql.NullString
	err := row.Scan(&p.ID, &p.Identifiant, &p.TypePiece, &p.Statut, &localisation,
		&dateEntree, &origine, &qrFilename, &p.TauxEndommagement, &commentaire, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting piece: %w", err)
	}
	if localisation.Valid {
		p.Localisation = &localisation.String
	}
	p.DateEntree = dateEntree.String
	p.Origine = origine.String
	p.QRFilename = qrFilename.String
	p.Commentaire = commentaire.String
	return p, nil
}

func scanPieceRow(rows *sql.Rows) (*model.Piece, error) {
	p := &model.Piece{}
	var localisation, dateEntree, origine, qrFilename, commentaire sql.NullString
	err := rows.Scan(&p.ID, &p.Identifiant, &p.TypePiece, &p.Statut, &localisation,
		&dateEntree, &origine, &qrFilename, &p.TauxEndommagement, &commentaire, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scanning piece: %w", err)
	}
	if localisation.Valid {
		p.Localisation = &localisation.String
	}
	p.DateEntree = dateEntree.String
	p.Origine = origine.String
	p.QRFilename = qrFilename.String
	p.Commentaire = commentaire.String
	return p, nil
}
