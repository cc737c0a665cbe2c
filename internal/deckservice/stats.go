package deckservice

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/memora/internal/apperr"
	"github.com/starford/memora/internal/models"
)

const (
	DefaultStatsDays = 7
	MaxStatsDays     = 365
)

// Stats summarises the user's collection at the current time.
func (s *Service) Stats(ctx context.Context, userID string) (*models.UserStats, error) {
	st, err := s.store.UserStats(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	return st, nil
}

// StatsByDeck breaks the collection down per deck.
func (s *Service) StatsByDeck(ctx context.Context, userID string) ([]models.DeckStats, error) {
	st, err := s.store.DeckStats(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("deck stats: %w", err)
	}
	return st, nil
}

// ReviewsByDay returns one entry per UTC day over the last days days, oldest first,
// counting cards by their most recent review. Zero selects the default window.
func (s *Service) ReviewsByDay(ctx context.Context, userID string, days int) ([]models.DayStats, error) {
	if days == 0 {
		days = DefaultStatsDays
	}
	if days < 1 || days > MaxStatsDays {
		return nil, apperr.Invalid("days", fmt.Sprintf("must be between 1 and %d", MaxStatsDays))
	}

	now := s.now().UTC()
	today := now.Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(days - 1))

	stamps, err := s.store.ReviewedSince(ctx, userID, start)
	if err != nil {
		return nil, fmt.Errorf("review history: %w", err)
	}

	out := make([]models.DayStats, days)
	for i := range out {
		out[i].Date = start.AddDate(0, 0, i).Format(time.DateOnly)
	}
	for _, st := range stamps {
		i := int(st.ReviewedAt.UTC().Sub(start) / (24 * time.Hour))
		if i < 0 || i >= days {
			continue
		}
		out[i].Reviewed++
		if st.Repetitions >= models.MasteryThreshold {
			out[i].Mastered++
		}
	}
	return out, nil
}
