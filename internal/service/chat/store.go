package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pathway/internal/clock"
	"pathway/internal/domain"
	"pathway/internal/domain/models/chat"
	"pathway/internal/domain/repositories"
	chatRepo "pathway/internal/domain/repositories/chat"
)

// MessageStore is the append-only log behind every line. It is the only
// writer of sequence numbers and timestamps: each mutation takes the line
// lock inside a transaction, reads the tail and writes in one unit, so
// concurrent appends to the same line serialize instead of racing.
type MessageStore struct {
	messages  chatRepo.MessageRepository
	txManager repositories.TransactionManager
	clock     clock.Clock
	logger    *slog.Logger
}

// NewMessageStore creates a message store
func NewMessageStore(
	messages chatRepo.MessageRepository,
	txManager repositories.TransactionManager,
	c clock.Clock,
	logger *slog.Logger,
) *MessageStore {
	return &MessageStore{
		messages:  messages,
		txManager: txManager,
		clock:     c,
		logger:    logger,
	}
}

// Append adds messages to the end of a line in the order given, assigning
// consecutive sequences and the current time
func (s *MessageStore) Append(ctx context.Context, line chat.LineRef, msgs ...*chat.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	return s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.messages.LockLine(txCtx, line); err != nil {
			return err
		}

		last, err := s.messages.LastSequence(txCtx, line)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		for i, msg := range msgs {
			msg.ConversationID = line.ConversationID
			msg.BranchID = line.BranchID
			msg.Sequence = last + i + 1
			msg.CreatedAt = now
		}

		return s.messages.InsertMessages(txCtx, msgs)
	})
}

// Line returns a line's messages in sequence order
func (s *MessageStore) Line(ctx context.Context, line chat.LineRef) ([]chat.Message, error) {
	return s.messages.ListLine(ctx, line)
}

// Fork copies the prefix of from ending at throughMessageID into the empty
// line to. Copies keep role, content, attachments, reactions and timestamps;
// sequences restart at 1. Returns NotFoundError when the message is not in
// from.
func (s *MessageStore) Fork(ctx context.Context, from chat.LineRef, throughMessageID string, to chat.LineRef) ([]chat.Message, error) {
	var copies []chat.Message

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.messages.LockLine(txCtx, from); err != nil {
			return err
		}

		source, err := s.messages.ListLine(txCtx, from)
		if err != nil {
			return err
		}

		cut := indexOf(source, throughMessageID)
		if cut < 0 {
			return domain.NewNotFound("message", throughMessageID)
		}

		if err := s.messages.LockLine(txCtx, to); err != nil {
			return err
		}
		last, err := s.messages.LastSequence(txCtx, to)
		if err != nil {
			return err
		}
		if last != 0 {
			return fmt.Errorf("fork into non-empty line %s: %w", to.Key(), domain.ErrConflict)
		}

		prefix := make([]*chat.Message, 0, cut+1)
		for i := 0; i <= cut; i++ {
			cp := source[i].CopyForLine(to, i+1)
			prefix = append(prefix, &cp)
		}

		if err := s.messages.InsertMessages(txCtx, prefix); err != nil {
			return err
		}

		copies = make([]chat.Message, len(prefix))
		for i, m := range prefix {
			copies[i] = *m
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return copies, nil
}

// Rewrite replaces the content of a user message in line and removes every
// later message of that line. There is no undo. Returns the edited message
// and the number of messages removed.
func (s *MessageStore) Rewrite(ctx context.Context, line chat.LineRef, messageID, content string) (*chat.Message, int, error) {
	var (
		edited    *chat.Message
		truncated int
	)

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.messages.LockLine(txCtx, line); err != nil {
			return err
		}

		msg, err := s.messages.GetMessage(txCtx, messageID)
		if err != nil {
			return err
		}
		if msg.Line().Key() != line.Key() {
			return domain.NewNotFound("message", messageID)
		}
		if msg.Role != chat.RoleUser {
			return &domain.ValidationError{Message: "only user messages can be edited"}
		}

		now := s.clock.Now()
		if err := s.messages.UpdateContent(txCtx, messageID, content, now); err != nil {
			return err
		}

		truncated, err = s.messages.TruncateAfter(txCtx, line, msg.Sequence)
		if err != nil {
			return err
		}

		msg.Content = content
		msg.EditedAt = &now
		edited = msg
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	s.logger.Info("message rewritten",
		"id", messageID,
		"line", line.Key(),
		"truncated", truncated,
	)

	return edited, truncated, nil
}

// React adds or removes one reaction kind on a message
func (s *MessageStore) React(ctx context.Context, messageID string, kind chat.ReactionKind, on bool) (*chat.Message, error) {
	if !kind.Valid() {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("unknown reaction kind %d", kind)}
	}

	var updated *chat.Message
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		msg, err := s.messages.GetMessage(txCtx, messageID)
		if err != nil {
			return err
		}
		if err := s.messages.LockLine(txCtx, msg.Line()); err != nil {
			return err
		}

		// Re-read under the lock so concurrent toggles compose
		msg, err = s.messages.GetMessage(txCtx, messageID)
		if err != nil {
			return err
		}

		next := msg.Reactions.Without(kind)
		if on {
			next = msg.Reactions.With(kind)
		}
		if next != msg.Reactions {
			if err := s.messages.UpdateReactions(txCtx, messageID, next); err != nil {
				return err
			}
		}
		msg.Reactions = next
		updated = msg
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Drop removes every message of a line
func (s *MessageStore) Drop(ctx context.Context, line chat.LineRef) (int, error) {
	var removed int
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.messages.LockLine(txCtx, line); err != nil {
			return err
		}
		var err error
		removed, err = s.messages.DeleteLine(txCtx, line)
		return err
	})
	return removed, err
}

// Now exposes the store clock to services that stamp related records
func (s *MessageStore) Now() time.Time {
	return s.clock.Now()
}

func indexOf(msgs []chat.Message, id string) int {
	for i := range msgs {
		if msgs[i].ID == id {
			return i
		}
	}
	return -1
}
