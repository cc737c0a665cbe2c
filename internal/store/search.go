package store

import (
	"database/sql"
	"strings"
	"unicode"
)

// SearchResult represents one search hit.
type SearchResult struct {
	CardID   string `json:"card_id"`
	DeckID   string `json:"deck_id"`
	Question string `json:"question"`
	Snippet  string `json:"snippet"`
}

func collectSearch(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.CardID, &r.DeckID, &r.Question, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ftsQuery turns free text into an FTS5 expression: each whitespace-separated
// term becomes a quoted prefix match and the terms are ANDed. FTS5 operators and
// stray quotes are searched as text, never parsed. Terms without a letter or
// digit produce no tokens and are dropped.
func ftsQuery(q string) string {
	var terms []string
	for _, term := range strings.Fields(q) {
		if strings.IndexFunc(term, isWordRune) < 0 {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(term, `"`, `""`)+`"*`)
	}
	return strings.Join(terms, " ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
