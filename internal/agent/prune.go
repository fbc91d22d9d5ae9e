package agent

import (
	"unicode/utf8"

	"github.com/realtyai/concierge/internal/session"
)

// estimateTokens approximates the token count of a message. Roughly two
// characters per token holds well enough for budget enforcement across the
// mixed-language text this assistant sees.
func estimateTokens(m session.Message) int {
	return utf8.RuneCountInString(m.Content) / 2
}

func totalTokens(messages []session.Message) int {
	total := 0
	for _, m := range messages {
		total += estimateTokens(m)
	}
	return total
}

// Prune bounds the context handed to the model. It first caps the history to
// the window most recent messages, then drops the oldest survivors one at a
// time until the estimated token total fits the budget. The most recent
// message is always kept, even when it alone exceeds the budget, so a
// non-empty history never prunes to nothing.
func Prune(messages []session.Message, window, budget int) []session.Message {
	if len(messages) == 0 {
		return messages
	}
	if window > 0 && len(messages) > window {
		messages = messages[len(messages)-window:]
	}
	for len(messages) > 1 && totalTokens(messages) > budget {
		messages = messages[1:]
	}
	return messages
}
