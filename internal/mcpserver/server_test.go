package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/memora/internal/deckservice"
	"github.com/starford/memora/internal/models"
	"github.com/starford/memora/internal/review"
	"github.com/starford/memora/internal/store"
	"github.com/starford/memora/internal/testutil"
)

func testServer(t *testing.T) (*Server, *store.DB) {
	t.Helper()
	db := testutil.TestDB(t)
	srv := New(review.NewService(db), deckservice.NewService(db), "agent")
	return srv, db
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper, so handlers are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_due_cards":
		result, err = srv.getDueCards(ctx, req)
	case "review_card":
		result, err = srv.reviewCard(ctx, req)
	case "get_stats":
		result, err = srv.getStats(ctx, req)
	case "list_decks":
		result, err = srv.listDecks(ctx, req)
	case "get_grading_guide":
		result, err = srv.getGradingGuide(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestDueCardsAndReview(t *testing.T) {
	srv, db := testServer(t)
	deck := testutil.SeedDeck(t, db, "agent", "Rivers")
	card := testutil.SeedCard(t, db, deck.ID, "Longest river?", time.Now().Add(-time.Minute))

	var due []models.Card
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv, "get_due_cards", nil))), &due); err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].ID != card.ID {
		t.Fatalf("due = %+v", due)
	}

	r := callTool(t, srv, "review_card", map[string]any{"card_id": card.ID, "quality": float64(3)})
	if r.IsError {
		t.Fatalf("review error: %s", resultText(r))
	}
	var got models.Card
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatal(err)
	}
	if got.Repetitions != 1 || got.Interval != 1 {
		t.Errorf("reviewed card = %+v", got)
	}

	if text := resultText(callTool(t, srv, "get_due_cards", nil)); text != "no cards due" {
		t.Errorf("due after review = %q", text)
	}
}

func TestReviewCard_Errors(t *testing.T) {
	srv, db := testServer(t)
	deck := testutil.SeedDeck(t, db, "someone-else", "Private")
	card := testutil.SeedCard(t, db, deck.ID, "Secret question?", time.Now())

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"bad quality", map[string]any{"card_id": card.ID, "quality": 5}, "quality"},
		{"missing card", map[string]any{"card_id": "nope", "quality": 2}, "not found"},
		{"foreign card", map[string]any{"card_id": card.ID, "quality": 2}, "forbidden"},
		{"no quality", map[string]any{"card_id": card.ID}, "quality"},
		{"fractional quality", map[string]any{"card_id": card.ID, "quality": 2.9}, "quality"},
		{"string quality", map[string]any{"card_id": card.ID, "quality": "2"}, "quality"},
		{"boolean quality", map[string]any{"card_id": card.ID, "quality": true}, "quality"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := callTool(t, srv, "review_card", tt.args)
			if !r.IsError {
				t.Fatalf("expected tool error, got %q", resultText(r))
			}
			if !strings.Contains(resultText(r), tt.want) {
				t.Errorf("error = %q, want mention of %q", resultText(r), tt.want)
			}
		})
	}
}

func TestReviewCard_FractionalQualityLeavesCardUntouched(t *testing.T) {
	srv, db := testServer(t)
	deck := testutil.SeedDeck(t, db, "agent", "Oceans")
	card := testutil.SeedCard(t, db, deck.ID, "Deepest trench?", time.Now().Add(-time.Minute))

	r := callTool(t, srv, "review_card", map[string]any{"card_id": card.ID, "quality": 2.9})
	if !r.IsError {
		t.Fatalf("fractional grade accepted: %s", resultText(r))
	}

	stored, err := db.GetCard(context.Background(), card.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Repetitions != 0 || stored.EaseFactor != 2.5 || stored.LastReviewedAt != nil {
		t.Errorf("card rescheduled after rejected grade: %+v", stored)
	}
}

func TestStatsAndDecks(t *testing.T) {
	srv, db := testServer(t)
	deck := testutil.SeedDeck(t, db, "agent", "Mountains")
	testutil.SeedCard(t, db, deck.ID, "Highest peak?", time.Now().Add(-time.Hour))
	testutil.SeedDeck(t, db, "agent", "Lakes")

	var st models.UserStats
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv, "get_stats", nil))), &st); err != nil {
		t.Fatal(err)
	}
	if st.TotalDecks != 2 || st.TotalCards != 1 || st.CardsToReview != 1 {
		t.Errorf("stats = %+v", st)
	}

	var list deckservice.DeckList
	r := callTool(t, srv, "list_decks", map[string]any{"search": "mount"})
	if err := json.Unmarshal([]byte(resultText(r)), &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || list.Decks[0].Name != "Mountains" || list.Decks[0].CardCount != 1 {
		t.Errorf("decks = %+v", list)
	}
}

func TestGradingGuide(t *testing.T) {
	srv, _ := testServer(t)
	text := resultText(callTool(t, srv, "get_grading_guide", nil))
	if !strings.Contains(text, "| 3       | easy") {
		t.Errorf("guide missing grade table: %q", text)
	}

	contents, err := srv.readGradingGuideResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != gradingGuideURI || tc.Text != GradingGuide {
		t.Errorf("resource = %+v", contents[0])
	}
}
