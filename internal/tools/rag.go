package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/realtyai/concierge/internal/agent"
	"github.com/realtyai/concierge/internal/knowledge"
)

const ragSystemPrompt = "Answer the question using only the provided context from the user's documents. " +
	"Be brief and precise. If the context does not contain the answer, say you could not find it in the documents."

// RagToolName and RagToolDescription identify this tool in the model's
// function declarations. Exported so wiring can declare the tool to the
// model before the tool itself is constructed.
const (
	RagToolName        = "Rag"
	RagToolDescription = "Useful when you need to look for answers in documents, PDFs, text files, " +
		"or webpages Human shared, when you are explicitly ask to do so."
)

// KnowledgeSearcher is the slice of the knowledge store the retrieval tools
// need.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// RAGTool answers questions from the user's own indexed documents: retrieve
// top-K matches filtered to the sender, rerank down to top-N, then have the
// model synthesize an answer grounded in those passages. It is terminal so
// the synthesized answer reaches the user without another rewriting pass.
type RAGTool struct {
	knowledge     KnowledgeSearcher
	reranker      knowledge.Reranker
	model         agent.Model
	messenger     Messenger
	topK          int
	topN          int
	citationLimit int
	logger        *slog.Logger
}

// NewRAGTool creates the retrieval-augmented answer tool.
func NewRAGTool(searcher KnowledgeSearcher, reranker knowledge.Reranker, model agent.Model, messenger Messenger, logger *slog.Logger) *RAGTool {
	if logger == nil {
		logger = slog.Default()
	}
	return &RAGTool{
		knowledge:     searcher,
		reranker:      reranker,
		model:         model,
		messenger:     messenger,
		topK:          6,
		topN:          2,
		citationLimit: 2,
		logger:        logger,
	}
}

// WithCitationLimit caps how many source identifiers one invocation may add
// to the turn's citation set.
func (t *RAGTool) WithCitationLimit(n int) *RAGTool {
	if n > 0 {
		t.citationLimit = n
	}
	return t
}

func (t *RAGTool) Name() string { return RagToolName }

func (t *RAGTool) Description() string { return RagToolDescription }

func (t *RAGTool) Terminal() bool { return true }

// Invoke retrieves, reranks and synthesizes. Source identifiers of the top
// matches are recorded as citations, capped per invocation. Any failure
// degrades to a sentinel string.
func (t *RAGTool) Invoke(ctx context.Context, turn *agent.Turn, query string) string {
	t.notify(ctx, turn.SenderID, fmt.Sprintf("_Retrieval Augmented Generation_ about *%s*....", query))

	results, err := t.knowledge.Search(ctx, query,
		knowledge.WithTopK(t.topK),
		knowledge.WithOwner(turn.SenderID))
	if err != nil {
		t.logger.Error("rag retrieval failed", "sender_id", turn.SenderID, "error", err)
		return ragFailed
	}

	ranked, err := t.reranker.Rerank(ctx, query, results, t.topN)
	if err != nil {
		t.logger.Error("rag rerank failed", "sender_id", turn.SenderID, "error", err)
		return ragFailed
	}

	var b strings.Builder
	for _, r := range ranked {
		b.WriteString(r.Document.Content)
		b.WriteString("\n\n")
	}

	resp, err := t.model.Generate(ctx, &agent.ModelRequest{
		System:  ragSystemPrompt,
		Input:   query,
		Context: []string{b.String()},
	})
	if err != nil {
		t.logger.Error("rag synthesis failed", "sender_id", turn.SenderID, "error", err)
		return ragFailed
	}

	for i, r := range ranked {
		if i >= t.citationLimit {
			break
		}
		source := r.Document.Source
		if source == "" {
			source = knowledge.UnknownSource
		}
		turn.AddCitation(source)
	}

	return resp.Text
}

func (t *RAGTool) notify(ctx context.Context, recipient, text string) {
	if err := t.messenger.SendText(ctx, recipient, text, false); err != nil {
		t.logger.Warn("failed to send status update", "recipient", recipient, "error", err)
	}
}
