package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// GetSessionSecret retrieves the session token signing secret from the
// database, generating and storing one on first use. Uses INSERT OR
// IGNORE + re-SELECT so concurrent first startups agree on one secret.
func GetSessionSecret(ctx context.Context, db *sql.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('session_secret', ?)`,
		candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing session secret: %w", err)
	}

	var secret string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'session_secret'`,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying session secret: %w", err)
	}

	return secret, nil
}
