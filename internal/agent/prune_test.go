package agent

import (
	"fmt"
	"strings"
	"testing"

	"github.com/realtyai/concierge/internal/session"
)

func msgOfTokens(role string, tokens int) session.Message {
	return session.Message{Role: role, Content: strings.Repeat("ab", tokens)}
}

func TestPruneWindowCap(t *testing.T) {
	t.Parallel()

	var history []session.Message
	for i := range 10 {
		history = append(history, session.Message{
			Role:    session.RoleUser,
			Content: fmt.Sprintf("message %d", i),
		})
	}

	got := Prune(history, 6, 10_000)
	if len(got) != 6 {
		t.Fatalf("got %d messages, want 6", len(got))
	}
	if got[0].Content != "message 4" || got[5].Content != "message 9" {
		t.Errorf("window kept wrong slice: first=%q last=%q", got[0].Content, got[5].Content)
	}
}

func TestPruneDropsOldestFirst(t *testing.T) {
	t.Parallel()

	history := []session.Message{
		msgOfTokens(session.RoleUser, 400),
		msgOfTokens(session.RoleAssistant, 400),
		msgOfTokens(session.RoleUser, 400),
	}

	got := Prune(history, 6, 1000)
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	// Survivors keep their relative order and are the newest ones.
	if got[0].Role != session.RoleAssistant || got[1].Role != session.RoleUser {
		t.Errorf("survivors = %s, %s", got[0].Role, got[1].Role)
	}
	if totalTokens(got) > 1000 {
		t.Errorf("pruned total %d exceeds budget", totalTokens(got))
	}
}

func TestPruneKeepsMostRecentOverBudget(t *testing.T) {
	t.Parallel()

	history := []session.Message{msgOfTokens(session.RoleUser, 5000)}

	got := Prune(history, 6, 1000)
	if len(got) != 1 {
		t.Fatalf("got %d messages, want the most recent kept", len(got))
	}
}

func TestPruneNeverIncreasesTokens(t *testing.T) {
	t.Parallel()

	budgets := []int{0, 1, 100, 1000, 100_000}
	history := []session.Message{
		msgOfTokens(session.RoleUser, 50),
		msgOfTokens(session.RoleAssistant, 300),
		msgOfTokens(session.RoleUser, 700),
		msgOfTokens(session.RoleAssistant, 20),
	}
	before := totalTokens(history)

	for _, budget := range budgets {
		got := Prune(history, 6, budget)
		if after := totalTokens(got); after > before {
			t.Errorf("budget %d: token count grew from %d to %d", budget, before, after)
		}
		if len(got) == 0 {
			t.Errorf("budget %d: non-empty history pruned to nothing", budget)
		}
		if got[len(got)-1].Content != history[len(history)-1].Content {
			t.Errorf("budget %d: most recent message dropped", budget)
		}
	}
}

func TestPruneEmptyHistory(t *testing.T) {
	t.Parallel()

	if got := Prune(nil, 6, 1000); len(got) != 0 {
		t.Errorf("got %d messages from empty history", len(got))
	}
}
