package session

import (
	"context"
	"fmt"
	"log/slog"
)

// readLimit caps the number of messages loaded per session. History grows
// unbounded in storage; the agent only ever needs the recent tail.
const readLimit = 1000

// Querier defines the database operations the Store depends on.
// The interface is defined by the consumer so tests can substitute a fake;
// PGQuerier is the production implementation.
type Querier interface {
	// InsertMessage appends one message to a sender's log.
	InsertMessage(ctx context.Context, senderID, role, content string) error

	// RecentMessages returns up to limit of the newest messages for a
	// sender, oldest first.
	RecentMessages(ctx context.Context, senderID string, limit int32) ([]Message, error)

	// DeleteMessages removes all messages for a sender.
	DeleteMessages(ctx context.Context, senderID string) error
}

// Store manages conversation history persistence.
//
// Store is safe for concurrent use. Concurrent appends for the same sender
// are ordered by the database; near-simultaneous turns for one user are
// last-write-wins, an accepted weak-consistency boundary.
type Store struct {
	querier Querier
	logger  *slog.Logger
}

// New creates a Store. logger may be nil (defaults to slog.Default()).
func New(querier Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{querier: querier, logger: logger}
}

// Append persists msg at the end of the sender's log.
// Returns ErrStoreUnavailable on write failure; the caller decides whether
// the turn continues. Persistence is best-effort for conversation turns.
func (s *Store) Append(ctx context.Context, senderID string, msg Message) error {
	if err := s.querier.InsertMessage(ctx, senderID, msg.Role, msg.Content); err != nil {
		return fmt.Errorf("%w: appending message for %s: %v", ErrStoreUnavailable, senderID, err)
	}

	s.logger.Debug("appended message", "sender_id", senderID, "role", msg.Role)
	return nil
}

// Messages returns the sender's history in chronological order.
// An unknown sender yields an empty slice, not an error.
// Returns ErrStoreUnavailable on read failure; callers degrade to empty
// history rather than failing the turn.
func (s *Store) Messages(ctx context.Context, senderID string) ([]Message, error) {
	msgs, err := s.querier.RecentMessages(ctx, senderID, readLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: reading history for %s: %v", ErrStoreUnavailable, senderID, err)
	}

	s.logger.Debug("loaded history", "sender_id", senderID, "count", len(msgs))
	return msgs, nil
}

// Clear deletes all history for a sender. Idempotent: clearing an unknown
// sender is a no-op success.
func (s *Store) Clear(ctx context.Context, senderID string) error {
	if err := s.querier.DeleteMessages(ctx, senderID); err != nil {
		return fmt.Errorf("%w: clearing history for %s: %v", ErrStoreUnavailable, senderID, err)
	}

	s.logger.Debug("cleared history", "sender_id", senderID)
	return nil
}
