package room

import (
	"context"
	"log/slog"

	"pathway/internal/clock"
	"pathway/internal/domain/models/room"
	"pathway/internal/domain/repositories"
	roomRepo "pathway/internal/domain/repositories/room"
)

// ReadReceiptService acknowledges reads: it clears the reader's counter,
// flips the read flags in one batch and tells the other members so their
// single-check marks can become double-checks
type ReadReceiptService struct {
	messages  roomRepo.MessageRepository
	txManager repositories.TransactionManager
	unread    *UnreadTracker
	hub       *Hub
	clock     clock.Clock
	logger    *slog.Logger
}

// NewReadReceiptService creates a read receipt service
func NewReadReceiptService(
	messages roomRepo.MessageRepository,
	txManager repositories.TransactionManager,
	unread *UnreadTracker,
	hub *Hub,
	c clock.Clock,
	logger *slog.Logger,
) *ReadReceiptService {
	return &ReadReceiptService{
		messages:  messages,
		txManager: txManager,
		unread:    unread,
		hub:       hub,
		clock:     c,
		logger:    logger,
	}
}

// MarkRead acknowledges every message in the room not sent by readerID.
// Runs under the room lock so a concurrent send is counted either before
// the reset (and flipped here) or after it (and left unread). Calling it
// again with nothing new is a no-op and broadcasts nothing.
func (s *ReadReceiptService) MarkRead(ctx context.Context, roomID, readerID string) (*room.ReadResult, error) {
	readAt := s.clock.Now().Truncate(timePrecision)

	var marked int
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.messages.LockRoom(txCtx, roomID); err != nil {
			return err
		}

		s.unread.Reset(roomID, readerID)

		var err error
		marked, err = s.messages.MarkRead(txCtx, roomID, readerID, readAt)
		return err
	})
	if err != nil {
		// the log is authoritative; make the next read recount
		s.unread.Forget(roomID)
		return nil, err
	}

	if marked > 0 {
		s.hub.Broadcast(room.NewEvent(room.EventMessagesRead, roomID, room.MessagesReadPayload{
			ReaderID: readerID,
			Count:    marked,
			ReadAt:   readAt,
		}), readerID)

		s.logger.Info("messages read",
			"room_id", roomID,
			"reader_id", readerID,
			"count", marked,
		)
	}

	return &room.ReadResult{
		RoomID:      roomID,
		MarkedRead:  marked,
		UnreadCount: 0,
	}, nil
}
