package api

import "net/http"

// Stats handles GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.decks.Stats(r.Context(), RequestUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// DeckStats handles GET /api/stats/decks.
func (h *Handler) DeckStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.decks.StatsByDeck(r.Context(), RequestUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decks": st})
}

// ReviewStats handles GET /api/stats/reviews?days=N.
func (h *Handler) ReviewStats(w http.ResponseWriter, r *http.Request) {
	days, err := h.decks.ReviewsByDay(r.Context(), RequestUserID(r), queryInt(r, "days"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days})
}
