package store

import (
	"context"
	"time"

	"github.com/starford/memora/internal/models"
	"github.com/starford/memora/internal/srs"
)

// Store defines every persistence operation the services rely on.
// Consumers should depend on a narrower interface where they can.
type Store interface {
	CreateDeck(ctx context.Context, d models.Deck) error
	GetDeck(ctx context.Context, id string) (*models.Deck, error)
	GetDeckOwner(ctx context.Context, deckID string) (string, error)
	ListDecks(ctx context.Context, userID string, limit, offset int, search string) ([]models.Deck, int, error)
	UpdateDeck(ctx context.Context, id string, name, description *string, ifMatch string) (*models.Deck, error)
	DeleteDeck(ctx context.Context, id string) error

	CreateCard(ctx context.Context, c models.Card) error
	GetCard(ctx context.Context, id string) (*models.Card, error)
	ListCardsByDeck(ctx context.Context, deckID string, limit, offset int) ([]models.Card, int, error)
	UpdateCardContent(ctx context.Context, id string, question, answer *string, ifMatch string, now time.Time) (*models.Card, error)
	DeleteCard(ctx context.Context, id string) error
	UpdateCardScheduling(ctx context.Context, id string, s srs.State, reviewedAt time.Time) (*models.Card, error)
	ListDueCards(ctx context.Context, userID string, now time.Time) ([]models.Card, error)
	Search(ctx context.Context, userID, query string, limit int) ([]SearchResult, error)

	UserStats(ctx context.Context, userID string, now time.Time) (*models.UserStats, error)
	DeckStats(ctx context.Context, userID string, now time.Time) ([]models.DeckStats, error)
	ReviewedSince(ctx context.Context, userID string, since time.Time) ([]ReviewStamp, error)

	Ping(ctx context.Context) error
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
