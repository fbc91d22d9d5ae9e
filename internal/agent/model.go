package agent

import (
	"context"

	"github.com/realtyai/concierge/internal/session"
)

// ToolSpec describes one tool the model may select during generation.
type ToolSpec struct {
	Name        string
	Description string
}

// ToolCall is the model's decision to invoke a tool with a query.
type ToolCall struct {
	Name  string
	Query string
}

// ModelRequest carries everything one generation step needs.
type ModelRequest struct {
	System  string
	History []session.Message
	Input   string

	// Context holds text blocks accumulated from earlier tool calls in the
	// same turn, surfaced to the model as additional grounding.
	Context []string

	// Tools lists the tools the model may select. Empty means the model
	// must answer directly.
	Tools []ToolSpec
}

// ModelResponse is the outcome of one generation step: either direct answer
// text, or a request to invoke a tool.
type ModelResponse struct {
	Text     string
	ToolCall *ToolCall
}

// Model is a completion model with function calling. Implementations decide
// how tool specs map onto the provider's native tool declarations.
type Model interface {
	Generate(ctx context.Context, req *ModelRequest) (*ModelResponse, error)
}
