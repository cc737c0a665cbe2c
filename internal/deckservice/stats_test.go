package deckservice

import (
	"testing"
	"time"

	"github.com/starford/memora/internal/apperr"
	"github.com/starford/memora/internal/srs"
	"github.com/starford/memora/internal/testutil"
)

func TestStats(t *testing.T) {
	db := testutil.TestDB(t)
	svc := NewService(db, WithClock(func() time.Time { return clock }))
	ctx := t.Context()

	deck := testutil.SeedDeck(t, db, "alice", "Biology")
	testutil.SeedCard(t, db, deck.ID, "What is ATP?", clock.Add(-time.Hour))
	later := testutil.SeedCard(t, db, deck.ID, "What is RNA?", clock.Add(48*time.Hour))
	testutil.SeedDeck(t, db, "alice", "Empty")

	mature := srs.State{EaseFactor: 2.5, Interval: 30, Repetitions: 6, NextReview: clock.AddDate(0, 0, 30)}
	if _, err := db.UpdateCardScheduling(ctx, later.ID, mature, clock.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}

	st, err := svc.Stats(ctx, "alice")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalDecks != 2 || st.TotalCards != 2 || st.CardsToReview != 1 || st.MasteredCards != 1 || st.LearningCards != 1 {
		t.Errorf("stats = %+v", st)
	}

	decks, err := svc.StatsByDeck(ctx, "alice")
	if err != nil {
		t.Fatalf("StatsByDeck: %v", err)
	}
	if len(decks) != 2 {
		t.Fatalf("deck stats = %+v", decks)
	}
	for _, d := range decks {
		switch d.DeckName {
		case "Biology":
			if d.MasteryRate != 50 {
				t.Errorf("biology mastery = %v, want 50", d.MasteryRate)
			}
		case "Empty":
			if d.TotalCards != 0 || d.MasteryRate != 0 {
				t.Errorf("empty deck = %+v", d)
			}
		}
	}
}

func TestReviewsByDay(t *testing.T) {
	db := testutil.TestDB(t)
	svc := NewService(db, WithClock(func() time.Time { return clock }))
	ctx := t.Context()

	deck := testutil.SeedDeck(t, db, "alice", "History")
	a := testutil.SeedCard(t, db, deck.ID, "Year of 1066 battle?", clock)
	b := testutil.SeedCard(t, db, deck.ID, "First emperor of Rome?", clock)
	old := testutil.SeedCard(t, db, deck.ID, "Fall of Constantinople?", clock)

	learning := srs.State{EaseFactor: 2.5, Interval: 1, Repetitions: 1, NextReview: clock}
	mastered := srs.State{EaseFactor: 2.5, Interval: 40, Repetitions: 5, NextReview: clock}
	if _, err := db.UpdateCardScheduling(ctx, a.ID, learning, clock.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, err := db.UpdateCardScheduling(ctx, b.ID, mastered, clock.AddDate(0, 0, -2)); err != nil {
		t.Fatal(err)
	}
	if _, err := db.UpdateCardScheduling(ctx, old.ID, learning, clock.AddDate(0, 0, -30)); err != nil {
		t.Fatal(err)
	}

	days, err := svc.ReviewsByDay(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("ReviewsByDay: %v", err)
	}
	if len(days) != DefaultStatsDays {
		t.Fatalf("len = %d", len(days))
	}
	last := days[len(days)-1]
	if last.Date != "2026-04-20" || last.Reviewed != 1 || last.Mastered != 0 {
		t.Errorf("today = %+v", last)
	}
	twoAgo := days[len(days)-3]
	if twoAgo.Date != "2026-04-18" || twoAgo.Reviewed != 1 || twoAgo.Mastered != 1 {
		t.Errorf("two days ago = %+v", twoAgo)
	}
	total := 0
	for _, d := range days {
		total += d.Reviewed
	}
	if total != 2 {
		t.Errorf("total reviewed = %d, want 2 (30-day-old review excluded)", total)
	}

	for _, bad := range []int{-1, MaxStatsDays + 1} {
		if _, err := svc.ReviewsByDay(ctx, "alice", bad); !apperr.IsValidation(err) {
			t.Errorf("days=%d err = %v", bad, err)
		}
	}
}
