package chat

import (
	"context"

	"pathway/internal/domain/models/chat"
)

// CompletionProvider produces the AI mentor's reply for a line's history.
// It is called once per appended user message; errors become a
// CompletionFailure on that exchange and never touch the branch tree.
type CompletionProvider interface {
	// Complete returns the reply text for the given history (oldest first)
	Complete(ctx context.Context, history []chat.Message) (string, error)

	// Name returns the provider name (e.g., "anthropic", "openai", "lorem")
	Name() string
}
