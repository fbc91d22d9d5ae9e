package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/realtyai/concierge/internal/agent"
	"github.com/realtyai/concierge/internal/search"
	"github.com/realtyai/concierge/internal/session"
)

// HistoryAppender is the slice of the session store the search tool needs
// to durably log retrieved context.
type HistoryAppender interface {
	Append(ctx context.Context, senderID string, msg session.Message) error
}

// SearchTool answers questions about current events by querying a live web
// search provider. It is non-terminal: its output becomes extra context for
// one more model reasoning step.
type SearchTool struct {
	provider    search.Provider
	history     HistoryAppender
	messenger   Messenger
	resultCount int
	logger      *slog.Logger
}

// NewSearchTool creates the web search tool. resultCount bounds how many
// hits feed the context block; non-positive means the provider default.
func NewSearchTool(provider search.Provider, history HistoryAppender, messenger Messenger, resultCount int, logger *slog.Logger) *SearchTool {
	if logger == nil {
		logger = slog.Default()
	}
	if resultCount <= 0 {
		resultCount = 4
	}
	return &SearchTool{
		provider:    provider,
		history:     history,
		messenger:   messenger,
		resultCount: resultCount,
		logger:      logger,
	}
}

func (t *SearchTool) Name() string { return "Search" }

func (t *SearchTool) Description() string {
	return "Useful for when you need to answer questions about CURRENT EVENTS, " +
		"CURRENT STATE OF THE WORLD, HEALTH, MEDICINE, CLIMATE, ENTERTAINMENT, and POP CULTURE."
}

func (t *SearchTool) Terminal() bool { return false }

// Invoke searches the web and returns the concatenated snippets. The same
// block is logged as a SYSTEM message so later turns remember what was
// found. Failure degrades to a sentinel string.
func (t *SearchTool) Invoke(ctx context.Context, turn *agent.Turn, query string) string {
	t.notify(ctx, turn.SenderID, fmt.Sprintf("_Searching about_ *%s*....", query))

	results, err := t.provider.Search(ctx, query, t.resultCount)
	if err != nil {
		t.logger.Error("search tool failed", "sender_id", turn.SenderID, "query", query, "error", err)
		return searchFailed
	}

	var b strings.Builder
	for _, r := range results {
		b.WriteString("\n")
		b.WriteString(r.Snippet)
		b.WriteString("\n")
	}
	block := b.String()

	msg := session.NewSystemMessage("These contexts might help you:\n\n" + block)
	if err := t.history.Append(ctx, turn.SenderID, msg); err != nil {
		t.logger.Warn("failed to log search context", "sender_id", turn.SenderID, "error", err)
	}

	return block
}

func (t *SearchTool) notify(ctx context.Context, recipient, text string) {
	if err := t.messenger.SendText(ctx, recipient, text, false); err != nil {
		t.logger.Warn("failed to send status update", "recipient", recipient, "error", err)
	}
}
