// Package testutil provides shared test helpers for databases and seed data.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/starford/memora/internal/models"
	"github.com/starford/memora/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "memora-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// SeedDeck inserts a deck owned by userID.
func SeedDeck(t *testing.T, db *store.DB, userID, name string) models.Deck {
	t.Helper()
	d := models.Deck{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.CreateDeck(context.Background(), d); err != nil {
		t.Fatalf("seed deck: %v", err)
	}
	return d
}

// SeedCard inserts a never-reviewed card that becomes due at due.
func SeedCard(t *testing.T, db *store.DB, deckID, question string, due time.Time) models.Card {
	t.Helper()
	s := models.NewCardScheduling(due)
	now := time.Now().UTC()
	c := models.Card{
		ID:          uuid.NewString(),
		DeckID:      deckID,
		Question:    question,
		Answer:      "answer: " + question,
		EaseFactor:  s.EaseFactor,
		Interval:    s.Interval,
		Repetitions: s.Repetitions,
		NextReview:  s.NextReview,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.CreateCard(context.Background(), c); err != nil {
		t.Fatalf("seed card: %v", err)
	}
	return c
}
