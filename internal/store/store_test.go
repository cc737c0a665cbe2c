package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/memora/internal/apperr"
	"github.com/starford/memora/internal/models"
	"github.com/starford/memora/internal/srs"
)

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "memora-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustDeck(t *testing.T, db *DB, id, userID, name string) {
	t.Helper()
	if err := db.CreateDeck(context.Background(), models.Deck{ID: id, UserID: userID, Name: name, CreatedAt: t0}); err != nil {
		t.Fatalf("CreateDeck: %v", err)
	}
}

func mustCard(t *testing.T, db *DB, id, deckID, question string, due time.Time) {
	t.Helper()
	s := models.NewCardScheduling(due)
	err := db.CreateCard(context.Background(), models.Card{
		ID: id, DeckID: deckID, Question: question, Answer: "answer to " + question,
		EaseFactor: s.EaseFactor, Interval: s.Interval, Repetitions: s.Repetitions,
		NextReview: s.NextReview, CreatedAt: t0, UpdatedAt: t0,
	})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM decks`).Scan(&count); err != nil {
		t.Fatalf("decks table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM cards`).Scan(&count); err != nil {
		t.Fatalf("cards table missing: %v", err)
	}
}

func TestCreateAndGetCard(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	mustDeck(t, db, "d1", "alice", "Capitals")
	mustCard(t, db, "c1", "d1", "Capital of France?", t0)

	c, err := db.GetCard(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCard: %v", err)
	}
	if c.DeckID != "d1" || c.EaseFactor != 2.5 || c.Interval != 1 || c.Repetitions != 0 {
		t.Errorf("card = %+v", c)
	}
	if !c.NextReview.Equal(t0) {
		t.Errorf("next review = %v, want %v", c.NextReview, t0)
	}
	if c.LastReviewedAt != nil {
		t.Errorf("fresh card has last review %v", c.LastReviewedAt)
	}

	if _, err := db.GetCard(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetCard(missing) err = %v, want ErrNotFound", err)
	}
}

func TestGetDeckOwner(t *testing.T) {
	db := testDB(t)
	mustDeck(t, db, "d1", "alice", "Deck")

	owner, err := db.GetDeckOwner(context.Background(), "d1")
	if err != nil || owner != "alice" {
		t.Errorf("owner = %q, %v", owner, err)
	}
	if _, err := db.GetDeckOwner(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing deck err = %v", err)
	}
}

func TestUpdateCardScheduling(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	mustDeck(t, db, "d1", "alice", "Deck")
	mustCard(t, db, "c1", "d1", "Question one", t0)

	next := srs.State{EaseFactor: 2.36, Interval: 6, Repetitions: 2, NextReview: t0.AddDate(0, 0, 6)}
	c, err := db.UpdateCardScheduling(ctx, "c1", next, t0)
	if err != nil {
		t.Fatalf("UpdateCardScheduling: %v", err)
	}
	if c.EaseFactor != 2.36 || c.Interval != 6 || c.Repetitions != 2 {
		t.Errorf("updated card = %+v", c)
	}
	if !c.NextReview.Equal(next.NextReview) {
		t.Errorf("next review = %v, want %v", c.NextReview, next.NextReview)
	}
	if c.LastReviewedAt == nil || !c.LastReviewedAt.Equal(t0) {
		t.Errorf("last reviewed = %v", c.LastReviewedAt)
	}

	if _, err := db.UpdateCardScheduling(ctx, "ghost", next, t0); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("update missing err = %v, want ErrNotFound", err)
	}
}

func TestUpdateCardScheduling_RejectsOutOfRangeEase(t *testing.T) {
	db := testDB(t)
	mustDeck(t, db, "d1", "alice", "Deck")
	mustCard(t, db, "c1", "d1", "Question one", t0)

	bad := srs.State{EaseFactor: 3.1, Interval: 1, Repetitions: 1, NextReview: t0}
	if _, err := db.UpdateCardScheduling(context.Background(), "c1", bad, t0); err == nil {
		t.Fatal("expected check constraint failure")
	}
}

func TestUpdateCardContent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	mustDeck(t, db, "d1", "alice", "Deck")
	mustCard(t, db, "c1", "d1", "Old question", t0)

	before, err := db.GetCard(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	reviewed, err := db.UpdateCardScheduling(ctx, "c1",
		srs.State{EaseFactor: 2.5, Interval: 6, Repetitions: 2, NextReview: t0.AddDate(0, 0, 6)}, t0)
	if err != nil {
		t.Fatal(err)
	}
	if reviewed.Checksum != before.Checksum {
		t.Error("a review changed the content checksum")
	}

	question := "New question"
	later := t0.Add(time.Hour)
	c, err := db.UpdateCardContent(ctx, "c1", &question, nil, before.Checksum, later)
	if err != nil {
		t.Fatalf("UpdateCardContent: %v", err)
	}
	if c.Question != question || c.Answer != before.Answer {
		t.Errorf("content = %q / %q", c.Question, c.Answer)
	}
	if c.Interval != 6 || c.Repetitions != 2 {
		t.Errorf("scheduling changed: %+v", c)
	}
	if !c.UpdatedAt.Equal(later) || c.Checksum == before.Checksum {
		t.Errorf("updated_at = %v, checksum = %s", c.UpdatedAt, c.Checksum)
	}

	stored, err := db.GetCard(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Question != question || stored.Checksum != c.Checksum {
		t.Errorf("stored = %+v", stored)
	}

	if _, err := db.UpdateCardContent(ctx, "c1", &question, nil, before.Checksum, later); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale checksum err = %v, want ErrConflict", err)
	}
	if _, err := db.UpdateCardContent(ctx, "ghost", &question, nil, "", later); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing card err = %v, want ErrNotFound", err)
	}
}

func TestUpdateDeck(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	mustDeck(t, db, "d1", "alice", "Rivers")
	mustCard(t, db, "c1", "d1", "Longest river?", t0)

	before, err := db.GetDeck(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	desc := "Rivers of the world"
	d, err := db.UpdateDeck(ctx, "d1", nil, &desc, "")
	if err != nil {
		t.Fatalf("UpdateDeck: %v", err)
	}
	if d.Name != "Rivers" || d.Description != desc || d.CardCount != 1 {
		t.Errorf("deck = %+v", d)
	}

	name := "Lakes"
	if _, err := db.UpdateDeck(ctx, "d1", &name, nil, before.Checksum); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale checksum err = %v, want ErrConflict", err)
	}
	if _, err := db.UpdateDeck(ctx, "d1", &name, nil, d.Checksum); err != nil {
		t.Errorf("current checksum rejected: %v", err)
	}
	if _, err := db.UpdateDeck(ctx, "nope", &name, nil, ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing deck err = %v, want ErrNotFound", err)
	}
}

func TestFTSQuery(t *testing.T) {
	tests := map[string]string{
		"goroutine":      `"goroutine"*`,
		"  two   words ": `"two"* "words"*`,
		`say "hi`:        `"say"* """hi"*`,
		"this AND":       `"this"* "AND"*`,
		"? - !":          "",
		"":               "",
	}
	for in, want := range tests {
		if got := ftsQuery(in); got != want {
			t.Errorf("ftsQuery(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestListDueCards_OrderAndScope(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	mustDeck(t, db, "d1", "alice", "Mine")
	mustDeck(t, db, "d2", "bob", "Theirs")

	mustCard(t, db, "future", "d1", "Due later", t0.AddDate(0, 0, 2))
	mustCard(t, db, "yesterday", "d1", "Due yesterday", t0.AddDate(0, 0, -1))
	mustCard(t, db, "threedays", "d1", "Due three days ago", t0.AddDate(0, 0, -3))
	mustCard(t, db, "now", "d1", "Due exactly now", t0)
	mustCard(t, db, "foreign", "d2", "Someone else's", t0.AddDate(0, 0, -5))

	due, err := db.ListDueCards(ctx, "alice", t0)
	if err != nil {
		t.Fatalf("ListDueCards: %v", err)
	}
	want := []string{"threedays", "yesterday", "now"}
	if len(due) != len(want) {
		t.Fatalf("due = %d cards, want %d", len(due), len(want))
	}
	for i, id := range want {
		if due[i].ID != id {
			t.Errorf("due[%d] = %s, want %s", i, due[i].ID, id)
		}
	}

	none, err := db.ListDueCards(ctx, "carol", t0)
	if err != nil {
		t.Fatalf("ListDueCards(carol): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("carol has %d due cards, want 0", len(none))
	}
}

func TestListDecks_SearchAndPaging(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	mustDeck(t, db, "d1", "alice", "Spanish verbs")
	mustDeck(t, db, "d2", "alice", "Go concurrency")
	mustDeck(t, db, "d3", "alice", "Spanish nouns")
	mustDeck(t, db, "d4", "bob", "Spanish for bob")
	mustCard(t, db, "c1", "d1", "hablar?", t0)

	decks, total, err := db.ListDecks(ctx, "alice", 10, 0, "spanish")
	if err != nil {
		t.Fatalf("ListDecks: %v", err)
	}
	if total != 2 || len(decks) != 2 {
		t.Fatalf("total = %d, len = %d, want 2", total, len(decks))
	}

	page, total, err := db.ListDecks(ctx, "alice", 1, 1, "")
	if err != nil {
		t.Fatalf("ListDecks page: %v", err)
	}
	if total != 3 || len(page) != 1 {
		t.Errorf("total = %d, len = %d, want 3 and 1", total, len(page))
	}

	d, err := db.GetDeck(ctx, "d1")
	if err != nil {
		t.Fatalf("GetDeck: %v", err)
	}
	if d.CardCount != 1 {
		t.Errorf("card count = %d, want 1", d.CardCount)
	}
}

func TestDeleteDeck_CascadesCards(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	mustDeck(t, db, "d1", "alice", "Deck")
	mustCard(t, db, "c1", "d1", "Question one", t0)

	if err := db.DeleteDeck(ctx, "d1"); err != nil {
		t.Fatalf("DeleteDeck: %v", err)
	}
	if _, err := db.GetCard(ctx, "c1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("card survived deck delete: %v", err)
	}
	if err := db.DeleteDeck(ctx, "d1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestDeleteCard(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	mustDeck(t, db, "d1", "alice", "Deck")
	mustCard(t, db, "c1", "d1", "Question one", t0)

	if err := db.DeleteCard(ctx, "c1"); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
	if err := db.DeleteCard(ctx, "c1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestListCardsByDeck(t *testing.T) {
	db := testDB(t)
	mustDeck(t, db, "d1", "alice", "Deck")
	for _, id := range []string{"c1", "c2", "c3"} {
		mustCard(t, db, id, "d1", "Question "+id, t0)
	}
	cards, total, err := db.ListCardsByDeck(context.Background(), "d1", 2, 0)
	if err != nil {
		t.Fatalf("ListCardsByDeck: %v", err)
	}
	if total != 3 || len(cards) != 2 {
		t.Errorf("total = %d, len = %d", total, len(cards))
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	mustDeck(t, db, "d1", "alice", "Deck")
	mustDeck(t, db, "d2", "bob", "Deck")
	mustCard(t, db, "c1", "d1", "What is a goroutine?", t0)
	mustCard(t, db, "c2", "d2", "Why goroutine leaks?", t0)

	results, err := db.Search(context.Background(), "alice", "goroutine", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].CardID != "c1" {
		t.Errorf("results = %+v, want only c1", results)
	}
}

func TestStats(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	mustDeck(t, db, "d1", "alice", "First")
	mustDeck(t, db, "d2", "alice", "Empty")
	mustCard(t, db, "c1", "d1", "Question one", t0.AddDate(0, 0, -1))
	mustCard(t, db, "c2", "d1", "Question two", t0.AddDate(0, 0, 3))

	mastered := srs.State{EaseFactor: 2.5, Interval: 30, Repetitions: 5, NextReview: t0.AddDate(0, 0, 30)}
	if _, err := db.UpdateCardScheduling(ctx, "c2", mastered, t0.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}

	us, err := db.UserStats(ctx, "alice", t0)
	if err != nil {
		t.Fatalf("UserStats: %v", err)
	}
	want := models.UserStats{TotalDecks: 2, TotalCards: 2, CardsToReview: 1, MasteredCards: 1, LearningCards: 1}
	if *us != want {
		t.Errorf("user stats = %+v, want %+v", *us, want)
	}

	ds, err := db.DeckStats(ctx, "alice", t0)
	if err != nil {
		t.Fatalf("DeckStats: %v", err)
	}
	if len(ds) != 2 {
		t.Fatalf("deck stats rows = %d, want 2", len(ds))
	}
	for _, s := range ds {
		switch s.DeckID {
		case "d1":
			if s.TotalCards != 2 || s.MasteredCards != 1 || s.MasteryRate != 50 {
				t.Errorf("d1 stats = %+v", s)
			}
		case "d2":
			if s.TotalCards != 0 || s.MasteryRate != 0 {
				t.Errorf("d2 stats = %+v", s)
			}
		}
	}

	stamps, err := db.ReviewedSince(ctx, "alice", t0.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("ReviewedSince: %v", err)
	}
	if len(stamps) != 1 || stamps[0].Repetitions != 5 {
		t.Errorf("stamps = %+v", stamps)
	}
}
