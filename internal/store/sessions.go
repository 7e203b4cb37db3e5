package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ateliergpr/gpr/internal/auth"
	"github.com/ateliergpr/gpr/internal/model"
)

// CreateSession records a new server-side session keyed by the session
// token's ID. Opportunistically prunes rows older than the token
// lifetime, whose tokens can no longer validate anyway.
func CreateSession(ctx context.Context, db *sql.DB, tokenID, username string, role model.Role) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO sessions (token_id, username, role) VALUES (?, ?, ?)`,
		tokenID, username, role,
	)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	_, _ = db.ExecContext(ctx,
		`DELETE FROM sessions WHERE created_at < datetime('now', ?)`,
		fmt.Sprintf("-%d seconds", int(auth.TokenExpiry.Seconds())),
	)

	return nil
}

// GetSession returns the session for a token ID, or nil if it has been
// ended. Session rows are authoritative: a signed token without a row
// is not a session.
func GetSession(ctx context.Context, db *sql.DB, tokenID string) (*model.Session, error) {
	s := &model.Session{}
	err := db.QueryRowContext(ctx,
		`SELECT token_id, username, role, created_at FROM sessions WHERE token_id = ?`,
		tokenID,
	).Scan(&s.TokenID, &s.Username, &s.Role, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return s, nil
}

// DeleteSession ends a session. Deleting a session that does not exist
// is not an error: logout is idempotent.
func DeleteSession(ctx context.Context, db *sql.DB, tokenID string) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM sessions WHERE token_id = ?`, tokenID,
	)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
