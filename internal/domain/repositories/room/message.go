package room

import (
	"context"
	"time"

	"pathway/internal/domain/models/room"
)

// MessageRepository defines data access for a room's durable message log
type MessageRepository interface {
	// LockRoom serializes writers of one room for the current transaction.
	// Must be called inside TransactionManager.ExecTx.
	LockRoom(ctx context.Context, roomID string) error

	// LastMessageTime returns created_at of the newest message (nil if none)
	LastMessageTime(ctx context.Context, roomID string) (*time.Time, error)

	// CreateMessage persists a message and fills its ID
	CreateMessage(ctx context.Context, msg *room.Message) error

	// ListMessages returns one page ordered by created_at ascending plus the total
	ListMessages(ctx context.Context, roomID string, offset, limit int) ([]room.Message, int, error)

	// LastMessage returns the newest message or nil if the room is empty
	LastMessage(ctx context.Context, roomID string) (*room.Message, error)

	// CountUnread counts messages not sent by participantID with is_read = false
	CountUnread(ctx context.Context, roomID, participantID string) (int, error)

	// MarkRead flips is_read for every unread message not sent by readerID,
	// in one batch, and returns how many rows changed
	MarkRead(ctx context.Context, roomID, readerID string, at time.Time) (int, error)
}
