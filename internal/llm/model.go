// Package llm adapts a Genkit-hosted model to the agent's Model interface.
// Tool selection uses Genkit's function-calling support with tool execution
// deferred to the caller: the model only ever returns the request to invoke
// a tool, and the agent decides whether and how to run it.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/realtyai/concierge/internal/agent"
	"github.com/realtyai/concierge/internal/session"
)

// toolQuery is the input schema every tool exposes to the model: one free
// text query.
type toolQuery struct {
	Query string `json:"query" jsonschema_description:"The query to run the tool with"`
}

// Model generates responses through Genkit. Safe for concurrent use.
type Model struct {
	g         *genkit.Genkit
	modelName string
	refs      map[string]ai.ToolRef
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// New creates a Model bound to modelName. The tool specs are registered
// with Genkit once here; their handlers are never executed because
// generation runs with tool requests returned to the caller. limiter may be
// nil to disable client-side rate limiting.
func New(g *genkit.Genkit, modelName string, specs []agent.ToolSpec, limiter *rate.Limiter, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	refs := make(map[string]ai.ToolRef, len(specs))
	for _, spec := range specs {
		name := spec.Name
		refs[name] = genkit.DefineTool(g, name, spec.Description,
			func(_ *ai.ToolContext, _ toolQuery) (string, error) {
				return "", fmt.Errorf("tool %s must be dispatched by the caller", name)
			})
	}
	return &Model{
		g:         g,
		modelName: modelName,
		refs:      refs,
		limiter:   limiter,
		logger:    logger,
	}
}

// Generate runs one generation step. When the model selects a tool, the
// first tool request is surfaced as a ToolCall and nothing is executed.
func (m *Model) Generate(ctx context.Context, req *agent.ModelRequest) (*agent.ModelResponse, error) {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(m.modelName),
		ai.WithSystem(req.System),
		ai.WithMessages(m.buildMessages(req)...),
	}
	if refs := m.requestedRefs(req.Tools); len(refs) > 0 {
		opts = append(opts,
			ai.WithTools(refs...),
			ai.WithReturnToolRequests(true))
	}

	resp, err := genkit.Generate(ctx, m.g, opts...)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	out := &agent.ModelResponse{Text: resp.Text()}
	if requests := resp.ToolRequests(); len(requests) > 0 {
		out.ToolCall = &agent.ToolCall{
			Name:  requests[0].Name,
			Query: extractQuery(requests[0].Input),
		}
		if len(requests) > 1 {
			m.logger.Debug("model requested multiple tools, using the first",
				"count", len(requests))
		}
	}
	return out, nil
}

func (m *Model) buildMessages(req *agent.ModelRequest) []*ai.Message {
	messages := make([]*ai.Message, 0, len(req.History)+len(req.Context)+1)
	for _, msg := range req.History {
		part := ai.NewTextPart(msg.Content)
		switch msg.Role {
		case session.RoleAssistant:
			messages = append(messages, ai.NewModelMessage(part))
		case session.RoleSystem:
			messages = append(messages, ai.NewMessage(ai.RoleSystem, nil, part))
		default:
			messages = append(messages, ai.NewUserMessage(part))
		}
	}
	for _, block := range req.Context {
		part := ai.NewTextPart("These contexts might help you:\n\n" + block)
		messages = append(messages, ai.NewMessage(ai.RoleSystem, nil, part))
	}
	return append(messages, ai.NewUserMessage(ai.NewTextPart(req.Input)))
}

func (m *Model) requestedRefs(specs []agent.ToolSpec) []ai.ToolRef {
	var refs []ai.ToolRef
	for _, spec := range specs {
		if ref, ok := m.refs[spec.Name]; ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// extractQuery pulls the query string from a tool request's input, which
// arrives as decoded JSON.
func extractQuery(input any) string {
	switch v := input.(type) {
	case string:
		return v
	case map[string]any:
		if q, ok := v["query"].(string); ok {
			return q
		}
	}
	return ""
}
