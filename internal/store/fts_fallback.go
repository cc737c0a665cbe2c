//go:build !sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over the cards table.
	return nil
}

func ftsUpsert(_ context.Context, _ *sql.Tx, _, _, _ string) error { return nil }

func ftsDelete(_ context.Context, _ *sql.Tx, _ string) error { return nil }

func ftsDeleteDeck(_ context.Context, _ *sql.Tx, _ string) error { return nil }

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(ctx context.Context, userID, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT c.id, c.deck_id, c.question, substr(c.answer, 1, 200)
		FROM cards c
		JOIN decks d ON d.id = c.deck_id
		WHERE d.user_id = ? AND (c.question LIKE ? OR c.answer LIKE ?)
		ORDER BY c.created_at DESC
		LIMIT ?
	`, userID, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	return collectSearch(rows)
}
