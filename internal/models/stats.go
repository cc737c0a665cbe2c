package models

// UserStats summarises a user's collection.
type UserStats struct {
	TotalDecks    int `json:"totalDecks"`
	TotalCards    int `json:"totalCards"`
	CardsToReview int `json:"cardsToReview"`
	MasteredCards int `json:"masteredCards"`
	LearningCards int `json:"learningCards"`
}

// DeckStats is the per-deck breakdown of a user's collection.
type DeckStats struct {
	DeckID        string  `json:"deckId"`
	DeckName      string  `json:"deckName"`
	TotalCards    int     `json:"totalCards"`
	CardsToReview int     `json:"cardsToReview"`
	MasteredCards int     `json:"masteredCards"`
	LearningCards int     `json:"learningCards"`
	MasteryRate   float64 `json:"masteryRate"`
}

// DayStats counts reviews that happened on one calendar day (UTC).
type DayStats struct {
	Date     string `json:"date"`
	Reviewed int    `json:"reviewed"`
	Mastered int    `json:"mastered"`
}
