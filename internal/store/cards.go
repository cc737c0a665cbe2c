package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/memora/internal/apperr"
	"github.com/starford/memora/internal/checksum"
	"github.com/starford/memora/internal/models"
	"github.com/starford/memora/internal/srs"
)

const cardColumns = `c.id, c.deck_id, c.question, c.answer, c.ease_factor, c.interval_days,
	c.repetitions, c.next_review, c.last_reviewed_at, c.created_at, c.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*models.Card, error) {
	var (
		c        models.Card
		reviewed sql.NullTime
	)
	err := row.Scan(&c.ID, &c.DeckID, &c.Question, &c.Answer, &c.EaseFactor, &c.Interval,
		&c.Repetitions, &c.NextReview, &reviewed, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if reviewed.Valid {
		t := reviewed.Time.UTC()
		c.LastReviewedAt = &t
	}
	c.NextReview = c.NextReview.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	c.Checksum = checksum.Card(c.Question, c.Answer)
	return &c, nil
}

func collectCards(rows *sql.Rows) ([]models.Card, error) {
	defer rows.Close()
	out := []models.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan card: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// CreateCard inserts a card and its search entry within a transaction.
func (db *DB) CreateCard(ctx context.Context, c models.Card) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cards (id, deck_id, question, answer, ease_factor, interval_days,
			repetitions, next_review, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.DeckID, c.Question, c.Answer, c.EaseFactor, c.Interval,
		c.Repetitions, c.NextReview.UTC(), c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("store: insert card: %w", err)
	}
	if err := ftsUpsert(ctx, tx, c.ID, c.Question, c.Answer); err != nil {
		return err
	}
	return tx.Commit()
}

// GetCard returns the card with the given id or apperr.ErrNotFound.
func (db *DB) GetCard(ctx context.Context, id string) (*models.Card, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards c WHERE c.id = ?`, id)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get card: %w", err)
	}
	return c, nil
}

// ListCardsByDeck returns a page of a deck's cards, newest first, and the deck's total.
func (db *DB) ListCardsByDeck(ctx context.Context, deckID string, limit, offset int) ([]models.Card, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM cards WHERE deck_id = ?`, deckID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count cards: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+cardColumns+`
		FROM cards c
		WHERE c.deck_id = ?
		ORDER BY c.created_at DESC, c.id
		LIMIT ? OFFSET ?
	`, deckID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list cards: %w", err)
	}
	cards, err := collectCards(rows)
	if err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

// UpdateCardContent overwrites the non-nil content fields of a card and its search
// entry. Scheduling is untouched. A non-empty ifMatch must equal the card's
// current checksum or apperr.ErrConflict is returned.
func (db *DB) UpdateCardContent(ctx context.Context, id string, question, answer *string, ifMatch string, now time.Time) (*models.Card, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	c, err := scanCard(tx.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards c WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get card: %w", err)
	}
	if ifMatch != "" && ifMatch != c.Checksum {
		return nil, apperr.ErrConflict
	}

	if question != nil {
		c.Question = *question
	}
	if answer != nil {
		c.Answer = *answer
	}
	c.UpdatedAt = now.UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE cards SET question = ?, answer = ?, updated_at = ? WHERE id = ?`,
		c.Question, c.Answer, c.UpdatedAt, id); err != nil {
		return nil, fmt.Errorf("store: update card: %w", err)
	}
	if err := ftsUpsert(ctx, tx, id, c.Question, c.Answer); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	c.Checksum = checksum.Card(c.Question, c.Answer)
	return c, nil
}

// DeleteCard removes a card and its search entry.
func (db *DB) DeleteCard(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete card: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	if err := ftsDelete(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateCardScheduling overwrites the scheduling fields of a card and returns the stored row.
// Concurrent updates of the same card are last-write-wins.
func (db *DB) UpdateCardScheduling(ctx context.Context, id string, s srs.State, reviewedAt time.Time) (*models.Card, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	at := reviewedAt.UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE cards
		SET ease_factor = ?, interval_days = ?, repetitions = ?, next_review = ?,
			last_reviewed_at = ?, updated_at = ?
		WHERE id = ?
	`, s.EaseFactor, s.Interval, s.Repetitions, s.NextReview.UTC(), at, at, id)
	if err != nil {
		return nil, fmt.Errorf("store: update scheduling: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.ErrNotFound
	}

	c, err := scanCard(tx.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards c WHERE c.id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("store: reload card: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return c, nil
}

// ListDueCards returns the user's cards whose next review is at or before now,
// most overdue first.
func (db *DB) ListDueCards(ctx context.Context, userID string, now time.Time) ([]models.Card, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+cardColumns+`
		FROM cards c
		JOIN decks d ON d.id = c.deck_id
		WHERE d.user_id = ? AND c.next_review <= ?
		ORDER BY c.next_review ASC, c.id
	`, userID, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("store: list due cards: %w", err)
	}
	return collectCards(rows)
}
