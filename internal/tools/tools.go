// Package tools implements the three capabilities the conversation agent
// can invoke: live web search, retrieval-augmented answering over the
// user's indexed documents, and direct delivery of indexed files or links.
//
// Tools never return errors. A tool that cannot complete degrades to a
// fixed sentinel string the user can see, and the agent treats that string
// as ordinary output.
package tools

import (
	"context"
	"regexp"
)

// Sentinel strings returned when a tool cannot complete. These are shown to
// the user as-is, so they use WhatsApp italics markup.
const (
	searchFailed   = "_Failed the search._"
	ragFailed      = "_Failed the Rag._"
	retrieveFailed = "_Failed the retrieval_"
	retrievedOK    = "_Retrieved successfully_"
	noResourcesHit = "_No relevant resources found._"
)

// Messenger delivers out-of-band messages to the user mid-turn: status
// updates while a tool is working, and retrieved links or files.
type Messenger interface {
	SendText(ctx context.Context, recipient, text string, previewURL bool) error
	SendDocument(ctx context.Context, recipient, mediaID string) error
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

// containsURL reports whether the source identifier is a web link rather
// than an uploaded media ID.
func containsURL(s string) bool {
	return urlPattern.MatchString(s)
}
