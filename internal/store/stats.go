package store

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/memora/internal/models"
)

// ReviewStamp is the last review time of a card together with its streak.
type ReviewStamp struct {
	ReviewedAt  time.Time
	Repetitions int
}

// UserStats counts the user's decks and classifies their cards as of now.
func (db *DB) UserStats(ctx context.Context, userID string, now time.Time) (*models.UserStats, error) {
	var s models.UserStats
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM decks WHERE user_id = ?),
			count(c.id),
			coalesce(sum(CASE WHEN c.next_review <= ? THEN 1 ELSE 0 END), 0),
			coalesce(sum(CASE WHEN c.repetitions >= ? THEN 1 ELSE 0 END), 0)
		FROM cards c
		JOIN decks d ON d.id = c.deck_id
		WHERE d.user_id = ?
	`, userID, now.UTC(), models.MasteryThreshold, userID).Scan(
		&s.TotalDecks, &s.TotalCards, &s.CardsToReview, &s.MasteredCards)
	if err != nil {
		return nil, fmt.Errorf("store: user stats: %w", err)
	}
	s.LearningCards = s.TotalCards - s.MasteredCards
	return &s, nil
}

// DeckStats returns one row per deck owned by the user, newest deck first.
func (db *DB) DeckStats(ctx context.Context, userID string, now time.Time) ([]models.DeckStats, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT d.id, d.name,
			count(c.id),
			coalesce(sum(CASE WHEN c.next_review <= ? THEN 1 ELSE 0 END), 0),
			coalesce(sum(CASE WHEN c.repetitions >= ? THEN 1 ELSE 0 END), 0)
		FROM decks d
		LEFT JOIN cards c ON c.deck_id = d.id
		WHERE d.user_id = ?
		GROUP BY d.id, d.name, d.created_at
		ORDER BY d.created_at DESC, d.id
	`, now.UTC(), models.MasteryThreshold, userID)
	if err != nil {
		return nil, fmt.Errorf("store: deck stats: %w", err)
	}
	defer rows.Close()

	out := []models.DeckStats{}
	for rows.Next() {
		var s models.DeckStats
		if err := rows.Scan(&s.DeckID, &s.DeckName, &s.TotalCards, &s.CardsToReview, &s.MasteredCards); err != nil {
			return nil, fmt.Errorf("store: scan deck stats: %w", err)
		}
		s.LearningCards = s.TotalCards - s.MasteredCards
		if s.TotalCards > 0 {
			s.MasteryRate = float64(s.MasteredCards) / float64(s.TotalCards) * 100
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReviewedSince lists the user's cards last reviewed at or after since.
func (db *DB) ReviewedSince(ctx context.Context, userID string, since time.Time) ([]ReviewStamp, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT c.last_reviewed_at, c.repetitions
		FROM cards c
		JOIN decks d ON d.id = c.deck_id
		WHERE d.user_id = ? AND c.last_reviewed_at IS NOT NULL AND c.last_reviewed_at >= ?
	`, userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("store: reviewed since: %w", err)
	}
	defer rows.Close()

	var out []ReviewStamp
	for rows.Next() {
		var r ReviewStamp
		if err := rows.Scan(&r.ReviewedAt, &r.Repetitions); err != nil {
			return nil, fmt.Errorf("store: scan review stamp: %w", err)
		}
		r.ReviewedAt = r.ReviewedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
