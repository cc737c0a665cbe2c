package api

import (
	"errors"
	"net/http"

	"github.com/starford/memora/internal/deckservice"
	"github.com/starford/memora/internal/models"
	"github.com/starford/memora/internal/review"
)

// Handler holds API route handlers.
type Handler struct {
	reviews *review.Service
	decks   *deckservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(reviews *review.Service, decks *deckservice.Service) *Handler {
	return &Handler{reviews: reviews, decks: decks}
}

// Review handles POST /api/reviews.
//
//	@Summary		Grade a single card and reschedule it
//	@Tags			reviews
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ReviewRequest	true	"Card and grade"
//	@Success		200		{object}	models.Card
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reviews [post]
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	card, err := h.reviews.ReviewOne(r.Context(), req.CardID, *req.Quality, RequestUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// ReviewBatch handles POST /api/reviews/batch.
//
//	@Summary		Grade several cards; failures are reported per item
//	@Tags			reviews
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BatchReviewRequest	true	"Reviews"
//	@Success		200		{object}	BatchReviewResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	BatchReviewResponse
//	@Security		BearerAuth
//	@Router			/reviews/batch [post]
func (h *Handler) ReviewBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.reviews.ReviewBatch(r.Context(), req.Reviews, RequestUserID(r))
	switch {
	case errors.Is(err, review.ErrAllReviewsFailed):
		writeJSON(w, http.StatusUnprocessableEntity, struct {
			Error string `json:"error"`
			*review.BatchResult
		}{Error: err.Error(), BatchResult: res})
	case err != nil:
		writeError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

// CardsToReview handles GET /api/cards/review.
//
//	@Summary		List the caller's due cards, most overdue first
//	@Tags			reviews
//	@Produce		json
//	@Success		200	{object}	DueCardsResponse
//	@Security		BearerAuth
//	@Router			/cards/review [get]
func (h *Handler) CardsToReview(w http.ResponseWriter, r *http.Request) {
	cards, err := h.reviews.CardsToReview(r.Context(), RequestUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cards == nil {
		cards = []models.Card{}
	}
	writeJSON(w, http.StatusOK, DueCardsResponse{Cards: cards, Total: len(cards)})
}
