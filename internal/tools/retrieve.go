package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/realtyai/concierge/internal/agent"
	"github.com/realtyai/concierge/internal/knowledge"
)

// RetrieveTool delivers the user's indexed files or links directly. It
// retrieves matches for the query, reduces them to the most frequently
// occurring source identifiers, and pushes each winner to the user as a
// link preview or a document message. The chat reply is only a status
// string; the actual content goes out-of-band through the Messenger. It is
// terminal.
type RetrieveTool struct {
	knowledge KnowledgeSearcher
	reranker  knowledge.Reranker
	messenger Messenger
	topK      int
	topN      int
	logger    *slog.Logger
}

// NewRetrieveTool creates the file/link retrieval tool.
func NewRetrieveTool(searcher KnowledgeSearcher, reranker knowledge.Reranker, messenger Messenger, logger *slog.Logger) *RetrieveTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrieveTool{
		knowledge: searcher,
		reranker:  reranker,
		messenger: messenger,
		topK:      6,
		topN:      3,
		logger:    logger,
	}
}

func (t *RetrieveTool) Name() string { return "Retrieve" }

func (t *RetrieveTool) Description() string {
	return "Useful when you are asked to retrieve or user wants you to send him " +
		"Files, PDFs, text files, URLs etc."
}

func (t *RetrieveTool) Terminal() bool { return true }

// Invoke retrieves and delivers. Delivery failures for individual winners
// are logged and skipped; the remaining winners are still sent.
func (t *RetrieveTool) Invoke(ctx context.Context, turn *agent.Turn, query string) string {
	t.notify(ctx, turn.SenderID, fmt.Sprintf("_Retrieving resources about_ *%s*....", query))

	results, err := t.knowledge.Search(ctx, query,
		knowledge.WithTopK(t.topK),
		knowledge.WithOwner(turn.SenderID))
	if err != nil {
		t.logger.Error("retrieve search failed", "sender_id", turn.SenderID, "error", err)
		return retrieveFailed
	}

	ranked, err := t.reranker.Rerank(ctx, query, results, t.topN)
	if err != nil {
		t.logger.Error("retrieve rerank failed", "sender_id", turn.SenderID, "error", err)
		return retrieveFailed
	}

	winners := majoritySources(ranked)
	if len(winners) == 0 {
		return noResourcesHit
	}

	for _, source := range winners {
		if source == knowledge.UnknownSource {
			continue
		}
		if containsURL(source) {
			if err := t.messenger.SendText(ctx, turn.SenderID, source, true); err != nil {
				t.logger.Error("failed to deliver link", "sender_id", turn.SenderID, "source", source, "error", err)
			}
			continue
		}
		if err := t.messenger.SendDocument(ctx, turn.SenderID, source); err != nil {
			t.logger.Error("failed to deliver media", "sender_id", turn.SenderID, "source", source, "error", err)
		}
	}

	return retrievedOK
}

// majoritySources counts occurrences of each source identifier across the
// matches and returns every identifier achieving the maximum count. Ties
// keep all tied identifiers, in first-seen order.
func majoritySources(results []knowledge.Result) []string {
	if len(results) == 0 {
		return nil
	}

	counts := make(map[string]int)
	var order []string
	for _, r := range results {
		source := r.Document.Source
		if source == "" {
			source = knowledge.UnknownSource
		}
		if _, seen := counts[source]; !seen {
			order = append(order, source)
		}
		counts[source]++
	}

	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}

	var winners []string
	for _, source := range order {
		if counts[source] == max {
			winners = append(winners, source)
		}
	}
	return winners
}

func (t *RetrieveTool) notify(ctx context.Context, recipient, text string) {
	if err := t.messenger.SendText(ctx, recipient, text, false); err != nil {
		t.logger.Warn("failed to send status update", "recipient", recipient, "error", err)
	}
}
