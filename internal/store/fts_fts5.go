//go:build sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS cards_fts USING fts5(
			card_id UNINDEXED,
			question,
			answer,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(ctx context.Context, tx *sql.Tx, cardID, question, answer string) error {
	_, _ = tx.ExecContext(ctx, `DELETE FROM cards_fts WHERE card_id = ?`, cardID)
	_, err := tx.ExecContext(ctx, `INSERT INTO cards_fts (card_id, question, answer) VALUES (?, ?, ?)`,
		cardID, question, answer)
	if err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(ctx context.Context, tx *sql.Tx, cardID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM cards_fts WHERE card_id = ?`, cardID); err != nil {
		return fmt.Errorf("store: delete fts: %w", err)
	}
	return nil
}

func ftsDeleteDeck(ctx context.Context, tx *sql.Tx, deckID string) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM cards_fts
		WHERE card_id IN (SELECT id FROM cards WHERE deck_id = ?)
	`, deckID)
	if err != nil {
		return fmt.Errorf("store: delete deck fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 match over the user's cards and returns snippets.
func (db *DB) Search(ctx context.Context, userID, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	match := ftsQuery(query)
	if match == "" {
		return []SearchResult{}, nil
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT c.id, c.deck_id, c.question,
		       snippet(cards_fts, -1, '<b>', '</b>', '...', 32)
		FROM cards_fts
		JOIN cards c ON c.id = cards_fts.card_id
		JOIN decks d ON d.id = c.deck_id
		WHERE cards_fts MATCH ? AND d.user_id = ?
		ORDER BY rank
		LIMIT ?
	`, match, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	return collectSearch(rows)
}
