// Package session persists per-user conversation history.
//
// The history is an append-only log keyed by the messaging-platform sender ID.
// Sessions are created lazily on first append and never explicitly destroyed;
// bounding happens at read time (the agent prunes), not at write time.
package session

import (
	"errors"
	"time"
)

// Message role constants. Ordering of stored messages is insertion order and
// is semantically meaningful (chronological).
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single conversation message. Immutable once stored.
type Message struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// ErrStoreUnavailable indicates the backing store could not be read or
// written. Callers treat read failure as "no history" and write failure as
// skipped persistence; neither aborts a turn.
var ErrStoreUnavailable = errors.New("session store unavailable")

// NewUserMessage returns a user Message with the current timestamp.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, CreatedAt: time.Now()}
}

// NewAssistantMessage returns an assistant Message with the current timestamp.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, CreatedAt: time.Now()}
}

// NewSystemMessage returns a system Message with the current timestamp.
// Tools use this to durably record retrieved context into the session.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content, CreatedAt: time.Now()}
}
