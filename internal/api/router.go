package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/memora/internal/deckservice"
	"github.com/starford/memora/internal/review"
)

// RouterConfig collects what the API router serves.
type RouterConfig struct {
	Reviews *review.Service
	Decks   *deckservice.Service
	Auth    AuthConfig
	// Limiter, if non-nil, throttles every route per caller.
	Limiter Limiter
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(cfg RouterConfig) chi.Router {
	h := NewHandler(cfg.Reviews, cfg.Decks)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.Auth))
	if cfg.Limiter != nil {
		r.Use(RateLimitMiddleware(cfg.Limiter))
	}

	// Reviews.
	r.Post("/reviews", h.Review)
	r.Post("/reviews/batch", h.ReviewBatch)
	r.Get("/cards/review", h.CardsToReview)

	// Decks and cards.
	r.Get("/decks", h.ListDecks)
	r.Post("/decks", h.CreateDeck)
	r.Get("/decks/{id}", h.GetDeck)
	r.Put("/decks/{id}", h.UpdateDeck)
	r.Delete("/decks/{id}", h.DeleteDeck)
	r.Get("/decks/{id}/cards", h.ListDeckCards)
	r.Post("/cards", h.CreateCard)
	r.Get("/cards/{id}", h.GetCard)
	r.Put("/cards/{id}", h.UpdateCard)
	r.Delete("/cards/{id}", h.DeleteCard)

	r.Get("/search", h.Search)

	// Statistics.
	r.Get("/stats", h.Stats)
	r.Get("/stats/decks", h.DeckStats)
	r.Get("/stats/reviews", h.ReviewStats)

	if cfg.Events != nil {
		r.Get("/events", cfg.Events.ServeHTTP)
	}

	return r
}
