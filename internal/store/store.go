// Package store provides the SQLite-backed persistence for decks and cards,
// with optional FTS5 full-text search over card content.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS decks (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS cards (
	id               TEXT PRIMARY KEY,
	deck_id          TEXT NOT NULL REFERENCES decks(id) ON DELETE CASCADE,
	question         TEXT NOT NULL,
	answer           TEXT NOT NULL,
	ease_factor      REAL NOT NULL DEFAULT 2.5 CHECK (ease_factor BETWEEN 1.3 AND 2.5),
	interval_days    INTEGER NOT NULL DEFAULT 1 CHECK (interval_days >= 0),
	repetitions      INTEGER NOT NULL DEFAULT 0 CHECK (repetitions >= 0),
	next_review      DATETIME NOT NULL,
	last_reviewed_at DATETIME,
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decks_user ON decks(user_id);
CREATE INDEX IF NOT EXISTS idx_cards_deck ON cards(deck_id);
CREATE INDEX IF NOT EXISTS idx_cards_next_review ON cards(next_review);
`

// DB wraps a sql.DB with deck and card operations.
// All timestamps are written in UTC so DATETIME text compares chronologically.
// Transactions take the write lock up front, so read-check-write updates do not
// interleave.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Ping checks the connection; used by the readiness probe.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
