package agent

import "context"

// Tool is a capability the agent may invoke mid-turn. Invoke never returns
// an error: a tool that cannot complete degrades to a fixed sentinel string,
// so downstream handling treats failure as data rather than aborting the
// turn.
type Tool interface {
	// Name is the identifier the model uses to select the tool.
	Name() string

	// Description tells the model when the tool is appropriate.
	Description() string

	// Terminal reports whether the tool's output is returned to the user
	// verbatim, without a further model rewriting step. Retrieval tools are
	// terminal so the model cannot invent or alter retrieved facts.
	Terminal() bool

	Invoke(ctx context.Context, turn *Turn, query string) string
}
