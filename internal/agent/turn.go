package agent

import (
	"fmt"
	"strings"
)

// Turn is the ephemeral state of one agent invocation: the conversation it
// belongs to and the citations accumulated by retrieval tools. It is created
// at the start of Handle and discarded at the end; it is never shared across
// turns or goroutines.
type Turn struct {
	// SenderID identifies the conversation, and also scopes retrieval so
	// users only ever see their own indexed content.
	SenderID string

	citations []string
	seen      map[string]struct{}
}

// NewTurn returns turn state for one invocation.
func NewTurn(senderID string) *Turn {
	return &Turn{
		SenderID: senderID,
		seen:     make(map[string]struct{}),
	}
}

// AddCitation records a source identifier for the reply's citation block.
// Duplicates within the turn are dropped; first-seen order is preserved.
func (t *Turn) AddCitation(source string) {
	if source == "" {
		return
	}
	if _, dup := t.seen[source]; dup {
		return
	}
	t.seen[source] = struct{}{}
	t.citations = append(t.citations, source)
}

// Citations returns the deduplicated citations in first-seen order.
func (t *Turn) Citations() []string {
	return t.citations
}

// citationBlock renders the citations as numbered lines starting at 1.
// Empty when no citations were recorded.
func (t *Turn) citationBlock() string {
	var b strings.Builder
	for i, c := range t.citations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	return b.String()
}
