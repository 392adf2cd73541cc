package chat

import (
	"context"
	"time"

	"pathway/internal/domain/models/chat"
)

// MessageRepository defines data access for line messages.
// Sequence assignment belongs to the caller (MessageStore); the repository
// only persists what it is given and reports the current tail.
type MessageRepository interface {
	// LockLine serializes writers of one line for the current transaction.
	// Must be called inside TransactionManager.ExecTx.
	LockLine(ctx context.Context, line chat.LineRef) error

	// LastSequence returns the highest sequence in the line (0 if empty)
	LastSequence(ctx context.Context, line chat.LineRef) (int, error)

	// InsertMessages persists messages in order and fills their IDs
	InsertMessages(ctx context.Context, messages []*chat.Message) error

	// GetMessage retrieves a message by ID
	// Returns domain.ErrNotFound if not found
	GetMessage(ctx context.Context, messageID string) (*chat.Message, error)

	// ListLine returns the line's messages ordered by sequence
	ListLine(ctx context.Context, line chat.LineRef) ([]chat.Message, error)

	// TruncateAfter removes every message of the line with sequence > after
	// and returns how many were removed
	TruncateAfter(ctx context.Context, line chat.LineRef, after int) (int, error)

	// UpdateContent rewrites a message's content and sets edited_at
	UpdateContent(ctx context.Context, messageID, content string, editedAt time.Time) error

	// UpdateReactions replaces a message's reaction set
	UpdateReactions(ctx context.Context, messageID string, reactions chat.ReactionSet) error

	// DeleteLine removes every message of a line (branch purge)
	DeleteLine(ctx context.Context, line chat.LineRef) (int, error)
}
