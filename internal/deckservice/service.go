// Package deckservice manages decks and cards and reports collection statistics.
package deckservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/memora/internal/apperr"
	"github.com/starford/memora/internal/checksum"
	"github.com/starford/memora/internal/models"
	"github.com/starford/memora/internal/store"
)

const (
	defaultDeckPage   = 20
	defaultCardPage   = 50
	maxPageSize       = 100
	defaultSearchSize = 20
)

// Store is the subset of the persistence layer the service needs.
type Store interface {
	CreateDeck(ctx context.Context, d models.Deck) error
	GetDeck(ctx context.Context, id string) (*models.Deck, error)
	ListDecks(ctx context.Context, userID string, limit, offset int, search string) ([]models.Deck, int, error)
	UpdateDeck(ctx context.Context, id string, name, description *string, ifMatch string) (*models.Deck, error)
	DeleteDeck(ctx context.Context, id string) error

	CreateCard(ctx context.Context, c models.Card) error
	GetCard(ctx context.Context, id string) (*models.Card, error)
	ListCardsByDeck(ctx context.Context, deckID string, limit, offset int) ([]models.Card, int, error)
	UpdateCardContent(ctx context.Context, id string, question, answer *string, ifMatch string, now time.Time) (*models.Card, error)
	DeleteCard(ctx context.Context, id string) error
	Search(ctx context.Context, userID, query string, limit int) ([]store.SearchResult, error)

	UserStats(ctx context.Context, userID string, now time.Time) (*models.UserStats, error)
	DeckStats(ctx context.Context, userID string, now time.Time) ([]models.DeckStats, error)
	ReviewedSince(ctx context.Context, userID string, since time.Time) ([]store.ReviewStamp, error)
}

// CreateDeckInput is the caller-supplied part of a new deck.
type CreateDeckInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate implements validation.Validatable.
func (in CreateDeckInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(2, 100)),
		validation.Field(&in.Description, validation.RuneLength(0, 500)),
	)
}

// CreateCardInput is the caller-supplied part of a new card.
type CreateCardInput struct {
	DeckID   string `json:"deck_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Validate implements validation.Validatable.
func (in CreateCardInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.DeckID, validation.Required),
		validation.Field(&in.Question, validation.Required, validation.RuneLength(3, 1000)),
		validation.Field(&in.Answer, validation.Required, validation.RuneLength(1, 2000)),
	)
}

// UpdateDeckInput is a partial deck update; nil fields keep their value.
type UpdateDeckInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Validate implements validation.Validatable.
func (in UpdateDeckInput) Validate() error {
	if in.Name == nil && in.Description == nil {
		return apperr.Invalid("", "no fields to update")
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.When(in.Name != nil, validation.Required, validation.RuneLength(2, 100))),
		validation.Field(&in.Description, validation.RuneLength(0, 500)),
	)
}

// UpdateCardInput is a partial card content update; nil fields keep their value.
// Scheduling fields are owned by reviews and cannot be set here.
type UpdateCardInput struct {
	Question *string `json:"question"`
	Answer   *string `json:"answer"`
}

// Validate implements validation.Validatable.
func (in UpdateCardInput) Validate() error {
	if in.Question == nil && in.Answer == nil {
		return apperr.Invalid("", "no fields to update")
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Question, validation.When(in.Question != nil, validation.Required, validation.RuneLength(3, 1000))),
		validation.Field(&in.Answer, validation.When(in.Answer != nil, validation.Required, validation.RuneLength(1, 2000))),
	)
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	t := strings.TrimSpace(*p)
	return &t
}

// Page holds pagination parameters. Zero values select the defaults.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize(def int) Page {
	if p.Limit <= 0 {
		p.Limit = def
	}
	p.Limit = min(p.Limit, maxPageSize)
	p.Offset = max(p.Offset, 0)
	return p
}

// DeckList is one page of decks.
type DeckList struct {
	Decks  []models.Deck `json:"decks"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// CardList is one page of a deck's cards.
type CardList struct {
	Cards  []models.Card `json:"cards"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// Service coordinates deck and card operations for a single owner at a time.
type Service struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new deck service.
func NewService(st Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDeck stores a new deck owned by userID.
func (s *Service) CreateDeck(ctx context.Context, userID string, in CreateDeckInput) (*models.Deck, error) {
	if userID == "" {
		return nil, apperr.Invalid("userId", "is required")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	d := models.Deck{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   s.now(),
		Checksum:    checksum.Deck(in.Name, in.Description),
	}
	if err := s.store.CreateDeck(ctx, d); err != nil {
		return nil, fmt.Errorf("create deck: %w", err)
	}
	s.logger.Debug("deck created", slog.String("deck_id", d.ID), slog.String("user_id", userID))
	return &d, nil
}

// ListDecks returns the user's decks, newest first, optionally filtered by search.
func (s *Service) ListDecks(ctx context.Context, userID string, p Page, search string) (*DeckList, error) {
	p = p.normalize(defaultDeckPage)
	decks, total, err := s.store.ListDecks(ctx, userID, p.Limit, p.Offset, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	return &DeckList{Decks: decks, Total: total, Limit: p.Limit, Offset: p.Offset}, nil
}

// GetDeck returns a deck if userID owns it.
func (s *Service) GetDeck(ctx context.Context, userID, id string) (*models.Deck, error) {
	d, err := s.store.GetDeck(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("deck %s: %w", id, err)
	}
	if d.UserID != userID {
		return nil, fmt.Errorf("deck %s: %w", id, apperr.ErrForbidden)
	}
	return d, nil
}

// UpdateDeck renames or redescribes a deck owned by userID. A non-empty ifMatch
// must equal the deck's current checksum.
func (s *Service) UpdateDeck(ctx context.Context, userID, id string, in UpdateDeckInput, ifMatch string) (*models.Deck, error) {
	in.Name = trimmed(in.Name)
	in.Description = trimmed(in.Description)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.GetDeck(ctx, userID, id); err != nil {
		return nil, err
	}
	d, err := s.store.UpdateDeck(ctx, id, in.Name, in.Description, ifMatch)
	if err != nil {
		return nil, fmt.Errorf("update deck %s: %w", id, err)
	}
	s.logger.Debug("deck updated", slog.String("deck_id", id), slog.String("user_id", userID))
	return d, nil
}

// DeleteDeck removes a deck and all of its cards.
func (s *Service) DeleteDeck(ctx context.Context, userID, id string) error {
	if _, err := s.GetDeck(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteDeck(ctx, id); err != nil {
		return fmt.Errorf("delete deck %s: %w", id, err)
	}
	s.logger.Info("deck deleted", slog.String("deck_id", id), slog.String("user_id", userID))
	return nil
}

// ListCards returns one page of cards in a deck owned by userID.
func (s *Service) ListCards(ctx context.Context, userID, deckID string, p Page) (*CardList, error) {
	if _, err := s.GetDeck(ctx, userID, deckID); err != nil {
		return nil, err
	}
	p = p.normalize(defaultCardPage)
	cards, total, err := s.store.ListCardsByDeck(ctx, deckID, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return &CardList{Cards: cards, Total: total, Limit: p.Limit, Offset: p.Offset}, nil
}

// CreateCard adds a card to one of the user's decks. The card is due immediately.
func (s *Service) CreateCard(ctx context.Context, userID string, in CreateCardInput) (*models.Card, error) {
	in.Question = strings.TrimSpace(in.Question)
	in.Answer = strings.TrimSpace(in.Answer)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.GetDeck(ctx, userID, in.DeckID); err != nil {
		return nil, err
	}

	now := s.now()
	sched := models.NewCardScheduling(now)
	c := models.Card{
		ID:          uuid.NewString(),
		DeckID:      in.DeckID,
		Question:    in.Question,
		Answer:      in.Answer,
		EaseFactor:  sched.EaseFactor,
		Interval:    sched.Interval,
		Repetitions: sched.Repetitions,
		NextReview:  sched.NextReview,
		CreatedAt:   now,
		UpdatedAt:   now,
		Checksum:    checksum.Card(in.Question, in.Answer),
	}
	if err := s.store.CreateCard(ctx, c); err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}
	return &c, nil
}

// GetCard returns a card whose deck belongs to userID.
func (s *Service) GetCard(ctx context.Context, userID, id string) (*models.Card, error) {
	c, err := s.store.GetCard(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("card %s: %w", id, err)
	}
	if _, err := s.GetDeck(ctx, userID, c.DeckID); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCard edits the question or answer of a card whose deck belongs to userID.
// Its schedule is kept. A non-empty ifMatch must equal the card's current checksum.
func (s *Service) UpdateCard(ctx context.Context, userID, id string, in UpdateCardInput, ifMatch string) (*models.Card, error) {
	in.Question = trimmed(in.Question)
	in.Answer = trimmed(in.Answer)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.GetCard(ctx, userID, id); err != nil {
		return nil, err
	}
	c, err := s.store.UpdateCardContent(ctx, id, in.Question, in.Answer, ifMatch, s.now())
	if err != nil {
		return nil, fmt.Errorf("update card %s: %w", id, err)
	}
	return c, nil
}

// DeleteCard removes a card whose deck belongs to userID.
func (s *Service) DeleteCard(ctx context.Context, userID, id string) error {
	if _, err := s.GetCard(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteCard(ctx, id); err != nil {
		return fmt.Errorf("delete card %s: %w", id, err)
	}
	return nil
}

// Search runs a full-text query over the user's cards.
func (s *Service) Search(ctx context.Context, userID, query string, limit int) ([]store.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Invalid("q", "is required")
	}
	if limit <= 0 {
		limit = defaultSearchSize
	}
	results, err := s.store.Search(ctx, userID, query, min(limit, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}
