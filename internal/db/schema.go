package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL CHECK (role IN ('MAINT', 'LOG', 'ACHAT', 'INGE')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS piece (
    id                 INTEGER PRIMARY KEY,
    identifiant        TEXT NOT NULL UNIQUE,
    type_piece         TEXT NOT NULL,
    statut             TEXT NOT NULL DEFAULT '' CHECK (statut IN ('', 'reparable', 'non_reparable', 'cannibalisable')),
    localisation       TEXT,
    date_entree        TEXT,
    origine            TEXT,
    qr_filename        TEXT,
    taux_endommagement INTEGER NOT NULL DEFAULT 0 CHECK (taux_endommagement BETWEEN 0 AND 100),
    commentaire        TEXT,
    created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS historique (
    id          INTEGER PRIMARY KEY,
    piece_id    INTEGER NOT NULL REFERENCES piece(id),
    action      TEXT NOT NULL,
    date_action DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    role        TEXT NOT NULL,
    commentaire TEXT
);

CREATE INDEX IF NOT EXISTS idx_historique_piece
    ON historique(piece_id, date_action);

CREATE TABLE IF NOT EXISTS sessions (
    token_id   TEXT PRIMARY KEY,
    username   TEXT NOT NULL,
    role       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
