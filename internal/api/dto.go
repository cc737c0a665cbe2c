package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/memora/internal/models"
	"github.com/starford/memora/internal/review"
	"github.com/starford/memora/internal/store"
)

// ReviewRequest is the body of POST /api/reviews.
type ReviewRequest struct {
	CardID  string `json:"cardId" example:"7f0c..." validate:"required"`
	Quality *int   `json:"quality" example:"2" validate:"required"`
}

// Validate implements validation.Validatable.
func (r ReviewRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CardID, validation.Required),
		validation.Field(&r.Quality, validation.NotNil, validation.In(1, 2, 3).Error("must be 1 (hard), 2 (medium), or 3 (easy)")),
	)
}

// BatchReviewRequest is the body of POST /api/reviews/batch.
type BatchReviewRequest struct {
	Reviews []review.Item `json:"reviews" validate:"required"`
}

// Validate implements validation.Validatable.
func (r BatchReviewRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Reviews, validation.Required.Error("must be a non-empty array")),
	)
}

// BatchReviewResponse is returned by POST /api/reviews/batch.
type BatchReviewResponse = review.BatchResult

// DueCardsResponse lists the caller's due cards.
type DueCardsResponse struct {
	Cards []models.Card `json:"cards" validate:"required"`
	Total int           `json:"total" example:"12" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []store.SearchResult `json:"results" validate:"required"`
}
