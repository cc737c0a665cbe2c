package review

import (
	"context"
	"fmt"

	"github.com/starford/memora/internal/models"
)

// Authorizer decides whether a user may review a card.
type Authorizer interface {
	CanReview(ctx context.Context, userID string, card *models.Card) (bool, error)
}

// OwnerLookup resolves the user owning a deck.
type OwnerLookup interface {
	GetDeckOwner(ctx context.Context, deckID string) (string, error)
}

// DeckOwnership allows a review only when the card's deck belongs to the user.
type DeckOwnership struct {
	Owners OwnerLookup
}

// CanReview implements Authorizer.
func (a DeckOwnership) CanReview(ctx context.Context, userID string, card *models.Card) (bool, error) {
	owner, err := a.Owners.GetDeckOwner(ctx, card.DeckID)
	if err != nil {
		return false, fmt.Errorf("deck %s: %w", card.DeckID, err)
	}
	return owner == userID, nil
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, userID string, card *models.Card) (bool, error)

// CanReview implements Authorizer.
func (f AuthorizerFunc) CanReview(ctx context.Context, userID string, card *models.Card) (bool, error) {
	return f(ctx, userID, card)
}
