package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/memora/internal/apperr"
	"github.com/starford/memora/internal/checksum"
	"github.com/starford/memora/internal/models"
)

const deckColumns = `d.id, d.user_id, d.name, d.description, d.created_at,
	(SELECT count(*) FROM cards c WHERE c.deck_id = d.id)`

func scanDeck(row rowScanner) (*models.Deck, error) {
	var d models.Deck
	if err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Description, &d.CreatedAt, &d.CardCount); err != nil {
		return nil, err
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.Checksum = checksum.Deck(d.Name, d.Description)
	return &d, nil
}

// CreateDeck inserts a new deck.
func (db *DB) CreateDeck(ctx context.Context, d models.Deck) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO decks (id, user_id, name, description, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, d.ID, d.UserID, d.Name, d.Description, d.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("store: insert deck: %w", err)
	}
	return nil
}

// GetDeck returns the deck with the given id or apperr.ErrNotFound.
func (db *DB) GetDeck(ctx context.Context, id string) (*models.Deck, error) {
	d, err := scanDeck(db.conn.QueryRowContext(ctx, `SELECT `+deckColumns+` FROM decks d WHERE d.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get deck: %w", err)
	}
	return d, nil
}

// GetDeckOwner returns the user id owning deckID or apperr.ErrNotFound.
func (db *DB) GetDeckOwner(ctx context.Context, deckID string) (string, error) {
	var userID string
	err := db.conn.QueryRowContext(ctx, `SELECT user_id FROM decks WHERE id = ?`, deckID).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: get deck owner: %w", err)
	}
	return userID, nil
}

// ListDecks returns a page of the user's decks, newest first, optionally filtered
// by a case-insensitive match on name or description.
func (db *DB) ListDecks(ctx context.Context, userID string, limit, offset int, search string) ([]models.Deck, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	where := `d.user_id = ?`
	args := []any{userID}
	if search != "" {
		like := "%" + search + "%"
		where += ` AND (d.name LIKE ? OR d.description LIKE ?)`
		args = append(args, like, like)
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM decks d WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count decks: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+deckColumns+`
		FROM decks d
		WHERE `+where+`
		ORDER BY d.created_at DESC, d.id
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list decks: %w", err)
	}
	defer rows.Close()

	out := []models.Deck{}
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("store: scan deck: %w", err)
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

// UpdateDeck overwrites the non-nil fields of a deck. A non-empty ifMatch must
// equal the deck's current checksum or apperr.ErrConflict is returned.
func (db *DB) UpdateDeck(ctx context.Context, id string, name, description *string, ifMatch string) (*models.Deck, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	d, err := scanDeck(tx.QueryRowContext(ctx, `SELECT `+deckColumns+` FROM decks d WHERE d.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get deck: %w", err)
	}
	if ifMatch != "" && ifMatch != d.Checksum {
		return nil, apperr.ErrConflict
	}

	if name != nil {
		d.Name = *name
	}
	if description != nil {
		d.Description = *description
	}
	if _, err := tx.ExecContext(ctx, `UPDATE decks SET name = ?, description = ? WHERE id = ?`,
		d.Name, d.Description, id); err != nil {
		return nil, fmt.Errorf("store: update deck: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	d.Checksum = checksum.Deck(d.Name, d.Description)
	return d, nil
}

// DeleteDeck removes a deck; its cards go with it.
func (db *DB) DeleteDeck(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDeleteDeck(ctx, tx, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete deck: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return tx.Commit()
}
