package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/memora/internal/deckservice"
	"github.com/starford/memora/internal/store"
)

func page(r *http.Request) deckservice.Page {
	return deckservice.Page{Limit: queryInt(r, "limit"), Offset: queryInt(r, "offset")}
}

// ListDecks handles GET /api/decks.
//
//	@Summary		List the caller's decks
//	@Tags			decks
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			search	query		string	false	"Name or description filter"
//	@Success		200		{object}	deckservice.DeckList
//	@Security		BearerAuth
//	@Router			/decks [get]
func (h *Handler) ListDecks(w http.ResponseWriter, r *http.Request) {
	list, err := h.decks.ListDecks(r.Context(), RequestUserID(r), page(r), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateDeck handles POST /api/decks.
func (h *Handler) CreateDeck(w http.ResponseWriter, r *http.Request) {
	var in deckservice.CreateDeckInput
	if !decodeJSON(w, r, &in) {
		return
	}
	d, err := h.decks.CreateDeck(r.Context(), RequestUserID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// GetDeck handles GET /api/decks/{id}.
func (h *Handler) GetDeck(w http.ResponseWriter, r *http.Request) {
	d, err := h.decks.GetDeck(r.Context(), RequestUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ifMatch returns the If-Match header without ETag quoting; empty disables the check.
func ifMatch(r *http.Request) string {
	return strings.Trim(strings.TrimPrefix(r.Header.Get("If-Match"), "W/"), `"`)
}

// UpdateDeck handles PUT /api/decks/{id}.
//
//	@Summary		Rename or redescribe a deck
//	@Tags			decks
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string						true	"Deck ID"
//	@Param			If-Match	header		string						false	"Deck checksum for optimistic concurrency"
//	@Param			body		body		deckservice.UpdateDeckInput	true	"Fields to change"
//	@Success		200			{object}	models.Deck
//	@Failure		400			{object}	errResponse
//	@Failure		403			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{id} [put]
func (h *Handler) UpdateDeck(w http.ResponseWriter, r *http.Request) {
	var in deckservice.UpdateDeckInput
	if !decodeJSON(w, r, &in) {
		return
	}
	d, err := h.decks.UpdateDeck(r.Context(), RequestUserID(r), chi.URLParam(r, "id"), in, ifMatch(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DeleteDeck handles DELETE /api/decks/{id}.
func (h *Handler) DeleteDeck(w http.ResponseWriter, r *http.Request) {
	if err := h.decks.DeleteDeck(r.Context(), RequestUserID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDeckCards handles GET /api/decks/{id}/cards.
func (h *Handler) ListDeckCards(w http.ResponseWriter, r *http.Request) {
	list, err := h.decks.ListCards(r.Context(), RequestUserID(r), chi.URLParam(r, "id"), page(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateCard handles POST /api/cards.
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var in deckservice.CreateCardInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.decks.CreateCard(r.Context(), RequestUserID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// GetCard handles GET /api/cards/{id}.
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	c, err := h.decks.GetCard(r.Context(), RequestUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// UpdateCard handles PUT /api/cards/{id}. Only question and answer can change.
//
//	@Summary		Edit a card's question or answer
//	@Tags			cards
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string						true	"Card ID"
//	@Param			If-Match	header		string						false	"Card checksum for optimistic concurrency"
//	@Param			body		body		deckservice.UpdateCardInput	true	"Fields to change"
//	@Success		200			{object}	models.Card
//	@Failure		400			{object}	errResponse
//	@Failure		403			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/cards/{id} [put]
func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	var in deckservice.UpdateCardInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.decks.UpdateCard(r.Context(), RequestUserID(r), chi.URLParam(r, "id"), in, ifMatch(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteCard handles DELETE /api/cards/{id}.
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := h.decks.DeleteCard(r.Context(), RequestUserID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across the caller's cards
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	results, err := h.decks.Search(r.Context(), RequestUserID(r), r.URL.Query().Get("q"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if results == nil {
		results = []store.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
