package session

import (
	"context"
	"errors"
	"testing"

	"github.com/realtyai/concierge/internal/log"
)

// fakeQuerier is an in-memory Querier for unit tests.
type fakeQuerier struct {
	logs    map[string][]Message
	failing bool
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{logs: make(map[string][]Message)}
}

var errDBDown = errors.New("connection refused")

func (f *fakeQuerier) InsertMessage(_ context.Context, senderID, role, content string) error {
	if f.failing {
		return errDBDown
	}
	f.logs[senderID] = append(f.logs[senderID], Message{Role: role, Content: content})
	return nil
}

func (f *fakeQuerier) RecentMessages(_ context.Context, senderID string, limit int32) ([]Message, error) {
	if f.failing {
		return nil, errDBDown
	}
	msgs := f.logs[senderID]
	if int32(len(msgs)) > limit {
		msgs = msgs[int32(len(msgs))-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (f *fakeQuerier) DeleteMessages(_ context.Context, senderID string) error {
	if f.failing {
		return errDBDown
	}
	delete(f.logs, senderID)
	return nil
}

func TestAppendAndMessages(t *testing.T) {
	t.Parallel()

	store := New(newFakeQuerier(), log.NewNop())
	ctx := context.Background()

	if err := store.Append(ctx, "15551234", NewUserMessage("hello")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(ctx, "15551234", NewAssistantMessage("hi there")); err != nil {
		t.Fatalf("append: %v", err)
	}

	msgs, err := store.Messages(ctx, "15551234")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "hello" {
		t.Errorf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Content != "hi there" {
		t.Errorf("unexpected second message: %+v", msgs[1])
	}
}

func TestMessagesUnknownSenderIsEmpty(t *testing.T) {
	t.Parallel()

	store := New(newFakeQuerier(), log.NewNop())

	msgs, err := store.Messages(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("unknown sender must not error: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected empty history, got %d messages", len(msgs))
	}
}

func TestClearIsIdempotent(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	store := New(q, log.NewNop())
	ctx := context.Background()

	if err := store.Append(ctx, "u1", NewUserMessage("hi")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Clear(ctx, "u1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	// Clearing again (and clearing a session that never existed) succeeds.
	if err := store.Clear(ctx, "u1"); err != nil {
		t.Errorf("second clear should be a no-op success: %v", err)
	}
	if err := store.Clear(ctx, "ghost"); err != nil {
		t.Errorf("clearing unknown sender should succeed: %v", err)
	}

	msgs, err := store.Messages(ctx, "u1")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected empty history after clear, got %d", len(msgs))
	}
}

func TestStoreUnavailable(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	q.failing = true
	store := New(q, log.NewNop())
	ctx := context.Background()

	if err := store.Append(ctx, "u1", NewUserMessage("hi")); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("append error = %v, want ErrStoreUnavailable", err)
	}
	if _, err := store.Messages(ctx, "u1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("read error = %v, want ErrStoreUnavailable", err)
	}
	if err := store.Clear(ctx, "u1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("clear error = %v, want ErrStoreUnavailable", err)
	}
}
