// Package agent implements the conversation turn controller: it loads and
// prunes a sender's history, lets the model choose between answering
// directly and invoking one of a fixed set of tools, enforces an iteration
// cap on tool use, and composes the final reply with a deduplicated
// citation block.
package agent

import (
	"context"
	"log/slog"

	"github.com/realtyai/concierge/internal/session"
)

const defaultSystemPrompt = "You are an AI personal assistant, specialised in all things retrieval and search. " +
	"Do your best to answer the questions at the end. Feel free to use any tools available to look up relevant information, " +
	"only if necessary. Ask follow-up questions in case of vague or unclear questions, to get more information about what is being asked. " +
	"Keep your answers very very short and extremely precise. If you do not know the answer, simply say so. DO NOT MAKE UP ANSWERS."

// HistoryStore is the slice of the session store the agent needs.
type HistoryStore interface {
	Append(ctx context.Context, senderID string, msg session.Message) error
	Messages(ctx context.Context, senderID string) ([]session.Message, error)
}

// Agent drives one request/response cycle per inbound message.
type Agent struct {
	model         Model
	tools         []Tool
	history       HistoryStore
	window        int
	tokenBudget   int
	maxIterations int
	systemPrompt  string
	logger        *slog.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithHistoryWindow caps how many recent messages are considered per turn.
func WithHistoryWindow(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.window = n
		}
	}
}

// WithTokenBudget caps the estimated token total of the pruned history.
func WithTokenBudget(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.tokenBudget = n
		}
	}
}

// WithMaxIterations caps tool invocations per turn.
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithSystemPrompt replaces the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		if prompt != "" {
			a.systemPrompt = prompt
		}
	}
}

// New creates an Agent. logger may be nil (defaults to slog.Default()).
func New(model Model, tools []Tool, history HistoryStore, logger *slog.Logger, opts ...Option) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Agent{
		model:         model,
		tools:         tools,
		history:       history,
		window:        6,
		tokenBudget:   1000,
		maxIterations: 3,
		systemPrompt:  defaultSystemPrompt,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handle runs one turn: load history, generate with tool selection, compose
// the reply. It never panics past its own boundary; any uncaught failure is
// logged and yields an empty reply.
func (a *Agent) Handle(ctx context.Context, senderID, input string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("turn panicked", "sender_id", senderID, "panic", r)
			reply = ""
		}
	}()

	turn := NewTurn(senderID)

	history, err := a.history.Messages(ctx, senderID)
	if err != nil {
		// Degrade to an empty history.
		a.logger.Warn("history unavailable", "sender_id", senderID, "error", err)
		history = nil
	}
	pruned := Prune(history, a.window, a.tokenBudget)

	output, ok := a.converse(ctx, turn, pruned, input)
	if !ok {
		return ""
	}

	a.persist(ctx, senderID, input, output)

	return output + "\n\n" + turn.citationBlock()
}

// converse runs the model/tool loop and returns the raw assistant output.
// Terminal tools short-circuit: their text is the output, with no further
// model pass over it.
func (a *Agent) converse(ctx context.Context, turn *Turn, history []session.Message, input string) (string, bool) {
	req := &ModelRequest{
		System:  a.systemPrompt,
		History: history,
		Input:   input,
		Tools:   a.toolSpecs(),
	}

	for i := 0; i < a.maxIterations; i++ {
		resp, err := a.model.Generate(ctx, req)
		if err != nil {
			a.logger.Error("model generation failed", "sender_id", turn.SenderID, "error", err)
			return "", false
		}
		if resp.ToolCall == nil {
			return resp.Text, true
		}

		tool := a.findTool(resp.ToolCall.Name)
		if tool == nil {
			a.logger.Warn("model selected unknown tool",
				"sender_id", turn.SenderID, "tool", resp.ToolCall.Name)
			return resp.Text, true
		}

		a.logger.Info("invoking tool",
			"sender_id", turn.SenderID, "tool", tool.Name(), "query", resp.ToolCall.Query)
		result := tool.Invoke(ctx, turn, resp.ToolCall.Query)

		if tool.Terminal() {
			return result, true
		}
		req.Context = append(req.Context, result)
	}

	// Iteration cap reached: force a direct answer from what accumulated.
	req.Tools = nil
	resp, err := a.model.Generate(ctx, req)
	if err != nil {
		a.logger.Error("forced direct answer failed", "sender_id", turn.SenderID, "error", err)
		return "", false
	}
	return resp.Text, true
}

// persist appends the turn's user/assistant pair. Best-effort: failures are
// logged and the reply is still delivered.
func (a *Agent) persist(ctx context.Context, senderID, input, output string) {
	if err := a.history.Append(ctx, senderID, session.NewUserMessage(input)); err != nil {
		a.logger.Warn("failed to persist user message", "sender_id", senderID, "error", err)
	}
	if err := a.history.Append(ctx, senderID, session.NewAssistantMessage(output)); err != nil {
		a.logger.Warn("failed to persist assistant message", "sender_id", senderID, "error", err)
	}
}

func (a *Agent) findTool(name string) Tool {
	for _, t := range a.tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

func (a *Agent) toolSpecs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(a.tools))
	for _, t := range a.tools {
		specs = append(specs, ToolSpec{Name: t.Name(), Description: t.Description()})
	}
	return specs
}
