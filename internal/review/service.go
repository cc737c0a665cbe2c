// Package review schedules graded card reviews and answers which cards are due.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/memora/internal/apperr"
	"github.com/starford/memora/internal/models"
	"github.com/starford/memora/internal/srs"
)

// ErrAllReviewsFailed is returned by ReviewBatch when no item succeeded.
var ErrAllReviewsFailed = errors.New("all reviews failed")

// Store is the persistence contract the orchestrator depends on.
type Store interface {
	GetCard(ctx context.Context, id string) (*models.Card, error)
	GetDeckOwner(ctx context.Context, deckID string) (string, error)
	UpdateCardScheduling(ctx context.Context, id string, s srs.State, reviewedAt time.Time) (*models.Card, error)
	ListDueCards(ctx context.Context, userID string, now time.Time) ([]models.Card, error)
}

// Notifier is told about every persisted review.
type Notifier interface {
	PublishReview(userID string, card models.Card)
}

// Item is one entry of a batch review.
type Item struct {
	CardID  string `json:"cardId"`
	Quality int    `json:"quality"`
}

// ItemError reports why a batch entry failed.
type ItemError struct {
	CardID string `json:"cardId"`
	Error  string `json:"error"`
	err    error
}

// Unwrap returns the underlying failure; it is not serialized.
func (e ItemError) Unwrap() error { return e.err }

// BatchResult partitions a batch into updated cards and per-item failures.
type BatchResult struct {
	Results []models.Card `json:"results"`
	Errors  []ItemError   `json:"errors"`
}

// Service is the review orchestrator.
type Service struct {
	store    Store
	auth     Authorizer
	notifier Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithAuthorizer replaces the default deck-ownership check.
func WithAuthorizer(a Authorizer) Option {
	return func(s *Service) { s.auth = a }
}

// WithNotifier registers a review listener.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock sets the time source used for scheduling and due queries.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a review orchestrator over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.auth == nil {
		s.auth = DeckOwnership{Owners: store}
	}
	return s
}

// ReviewOne applies a graded review to a card owned by userID and persists the result.
func (s *Service) ReviewOne(ctx context.Context, cardID string, quality int, userID string) (*models.Card, error) {
	if cardID == "" {
		return nil, apperr.Invalid("cardId", "is required")
	}
	if userID == "" {
		return nil, apperr.Invalid("userId", "is required")
	}
	grade, err := srs.ParseGrade(quality)
	if err != nil {
		return nil, apperr.Invalid("quality", "must be 1 (hard), 2 (medium), or 3 (easy)")
	}

	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("card %s: %w", cardID, err)
	}
	ok, err := s.auth.CanReview(ctx, userID, card)
	if err != nil {
		return nil, fmt.Errorf("authorize card %s: %w", cardID, err)
	}
	if !ok {
		return nil, fmt.Errorf("card %s: %w", cardID, apperr.ErrForbidden)
	}

	now := s.now()
	next, err := srs.Next(card.Scheduling(), grade, now)
	if err != nil {
		return nil, apperr.Invalid("quality", err.Error())
	}

	updated, err := s.store.UpdateCardScheduling(ctx, card.ID, next, now)
	if err != nil {
		return nil, fmt.Errorf("persist card %s: %w", cardID, err)
	}

	s.logger.Debug("card reviewed",
		slog.String("card_id", updated.ID),
		slog.String("grade", grade.String()),
		slog.Int("interval", updated.Interval),
		slog.Float64("ease_factor", updated.EaseFactor))

	if s.notifier != nil {
		s.notifier.PublishReview(userID, *updated)
	}
	return updated, nil
}

// ReviewBatch reviews each item in input order. A failing item never stops the
// others; the call itself fails with ErrAllReviewsFailed only when nothing succeeded.
func (s *Service) ReviewBatch(ctx context.Context, items []Item, userID string) (*BatchResult, error) {
	if len(items) == 0 {
		return nil, apperr.Invalid("reviews", "must be a non-empty array")
	}

	res := &BatchResult{
		Results: make([]models.Card, 0, len(items)),
		Errors:  []ItemError{},
	}
	for _, it := range items {
		card, err := s.ReviewOne(ctx, it.CardID, it.Quality, userID)
		if err != nil {
			res.Errors = append(res.Errors, ItemError{CardID: it.CardID, Error: err.Error(), err: err})
			continue
		}
		res.Results = append(res.Results, *card)
	}

	if len(res.Results) == 0 {
		return res, ErrAllReviewsFailed
	}
	if len(res.Errors) > 0 {
		s.logger.Info("batch review partially failed",
			slog.String("user_id", userID),
			slog.Int("succeeded", len(res.Results)),
			slog.Int("failed", len(res.Errors)))
	}
	return res, nil
}

// CardsToReview returns the user's due cards, most overdue first.
func (s *Service) CardsToReview(ctx context.Context, userID string) ([]models.Card, error) {
	if userID == "" {
		return nil, apperr.Invalid("userId", "is required")
	}
	cards, err := s.store.ListDueCards(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list due cards: %w", err)
	}
	return cards, nil
}
