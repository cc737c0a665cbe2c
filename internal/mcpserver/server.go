// Package mcpserver exposes Memora review tools to LLM clients over MCP stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/memora/internal/apperr"
	"github.com/starford/memora/internal/deckservice"
	"github.com/starford/memora/internal/review"
)

const gradingGuideURI = "memora://grading-guide"

// Server wraps the MCP server with Memora tools. Every call acts as a single
// configured user.
type Server struct {
	mcp     *server.MCPServer
	reviews *review.Service
	decks   *deckservice.Service
	userID  string
}

// New creates a new MCP server with all Memora tools registered.
func New(reviews *review.Service, decks *deckservice.Service, userID string) *Server {
	s := &Server{reviews: reviews, decks: decks, userID: userID}

	s.mcp = server.NewMCPServer(
		"Memora",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_due_cards",
		mcp.WithDescription("List the cards that are due for review now, most overdue first."),
	), s.getDueCards)

	s.mcp.AddTool(mcp.NewTool("review_card",
		mcp.WithDescription("Record how well a card was recalled and reschedule it. "+
			"Read the grading guide (get_grading_guide or "+gradingGuideURI+") before grading."),
		mcp.WithString("card_id", mcp.Required(), mcp.Description("ID of the card being reviewed")),
		mcp.WithNumber("quality", mcp.Required(), mcp.Description("1 = hard, 2 = medium, 3 = easy")),
	), s.reviewCard)

	s.mcp.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Collection totals: decks, cards, due, mastered and learning."),
	), s.getStats)

	s.mcp.AddTool(mcp.NewTool("list_decks",
		mcp.WithDescription("List decks with their card counts."),
		mcp.WithString("search", mcp.Description("Optional name or description filter")),
	), s.listDecks)

	s.mcp.AddTool(mcp.NewTool("get_grading_guide",
		mcp.WithDescription("Explains the three review grades and how they move a card's schedule."),
	), s.getGradingGuide)

	s.mcp.AddResource(
		mcp.NewResource(gradingGuideURI, "Grading Guide",
			mcp.WithResourceDescription("How review grades map onto the spaced-repetition schedule."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGradingGuideResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

// toolError turns domain failures into tool-level errors the model can read.
// Anything unclassified is returned as a protocol error.
func toolError(err error) (*mcp.CallToolResult, error) {
	switch {
	case apperr.IsValidation(err), errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrForbidden):
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

func (s *Server) getDueCards(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cards, err := s.reviews.CardsToReview(ctx, s.userID)
	if err != nil {
		return toolError(err)
	}
	if len(cards) == 0 {
		return mcp.NewToolResultText("no cards due"), nil
	}
	return jsonResult(cards)
}

func (s *Server) reviewCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cardID, err := req.RequireString("card_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	quality, err := qualityArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	card, err := s.reviews.ReviewOne(ctx, cardID, quality, s.userID)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(card)
}

// qualityArg reads the grade as a whole JSON number. RequireInt would truncate
// 2.9 to 2 and accept numeric strings.
func qualityArg(req mcp.CallToolRequest) (int, error) {
	v, ok := req.GetArguments()["quality"]
	if !ok {
		return 0, errors.New(`required argument "quality" not found`)
	}
	invalid := fmt.Errorf("quality must be 1 (hard), 2 (medium), or 3 (easy), got %v", v)
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || n < math.MinInt32 || n > math.MaxInt32 {
			return 0, invalid
		}
		return int(n), nil
	case int:
		return n, nil
	}
	return 0, invalid
}

func (s *Server) getStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.decks.Stats(ctx, s.userID)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(st)
}

func (s *Server) listDecks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.decks.ListDecks(ctx, s.userID, deckservice.Page{}, req.GetString("search", ""))
	if err != nil {
		return toolError(err)
	}
	return jsonResult(list)
}

func (s *Server) getGradingGuide(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(GradingGuide), nil
}

func (s *Server) readGradingGuideResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      gradingGuideURI,
			MIMEType: "text/markdown",
			Text:     GradingGuide,
		},
	}, nil
}
