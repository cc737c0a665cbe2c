// Package models defines the domain types for Memora.
package models

import (
	"time"

	"github.com/starford/memora/internal/srs"
)

// MasteryThreshold is the consecutive-success count at which a card counts as mastered.
const MasteryThreshold = 5

// Card is a question/answer pair with its scheduling state.
type Card struct {
	ID             string     `json:"id"`
	DeckID         string     `json:"deck_id"`
	Question       string     `json:"question"`
	Answer         string     `json:"answer"`
	EaseFactor     float64    `json:"ease_factor"`
	Interval       int        `json:"interval"`
	Repetitions    int        `json:"repetitions"`
	NextReview     time.Time  `json:"next_review"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	// Checksum versions Question and Answer for If-Match updates.
	Checksum string `json:"checksum"`
}

// Scheduling returns the fields the scheduler reads and writes.
func (c *Card) Scheduling() srs.State {
	return srs.State{
		EaseFactor:  c.EaseFactor,
		Interval:    c.Interval,
		Repetitions: c.Repetitions,
		NextReview:  c.NextReview,
	}
}

// Due reports whether the card should be reviewed at now.
func (c *Card) Due(now time.Time) bool {
	return !c.NextReview.After(now)
}

// Mastered is a reporting-only classification; it does not affect scheduling.
func (c *Card) Mastered() bool {
	return c.Repetitions >= MasteryThreshold
}

// NewCardScheduling is the state of a card that has never been reviewed:
// immediately due at now.
func NewCardScheduling(now time.Time) srs.State {
	return srs.State{
		EaseFactor:  srs.DefaultEaseFactor,
		Interval:    srs.DefaultInterval,
		Repetitions: 0,
		NextReview:  now.UTC(),
	}
}

// Deck groups cards and is owned by exactly one user.
type Deck struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CardCount   int       `json:"card_count"`
	CreatedAt   time.Time `json:"created_at"`
	Checksum    string    `json:"checksum"`
}
