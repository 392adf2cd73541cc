package room

import (
	"context"
	"sync"

	"pathway/internal/domain/repositories"
	roomRepo "pathway/internal/domain/repositories/room"
)

type counterKey struct {
	roomID        string
	participantID string
}

// UnreadTracker keeps one unread counter per (room, participant). Counters
// are derived from the message log: a counter the tracker does not hold
// (first use, or after a restart) is recomputed from storage under the
// room lock, so a recount never races a send or a markRead.
type UnreadTracker struct {
	messages  roomRepo.MessageRepository
	txManager repositories.TransactionManager

	mu       sync.Mutex
	counters map[counterKey]int
}

// NewUnreadTracker creates a tracker over the room message log
func NewUnreadTracker(messages roomRepo.MessageRepository, txManager repositories.TransactionManager) *UnreadTracker {
	return &UnreadTracker{
		messages:  messages,
		txManager: txManager,
		counters:  make(map[counterKey]int),
	}
}

// Get returns the participant's counter
func (t *UnreadTracker) Get(ctx context.Context, roomID, participantID string) (int, error) {
	key := counterKey{roomID, participantID}

	t.mu.Lock()
	n, ok := t.counters[key]
	t.mu.Unlock()
	if ok {
		return n, nil
	}

	return t.recompute(ctx, key)
}

// Increment adds one for a message just persisted. A counter not yet held
// is recomputed instead, and the recount already includes that message.
func (t *UnreadTracker) Increment(ctx context.Context, roomID, participantID string) (int, error) {
	key := counterKey{roomID, participantID}

	t.mu.Lock()
	n, ok := t.counters[key]
	if ok {
		n++
		t.counters[key] = n
	}
	t.mu.Unlock()
	if ok {
		return n, nil
	}

	return t.recompute(ctx, key)
}

// Reset sets the participant's counter to zero
func (t *UnreadTracker) Reset(roomID, participantID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters[counterKey{roomID, participantID}] = 0
}

// Forget drops every counter of a room; the next read recomputes
func (t *UnreadTracker) Forget(roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key := range t.counters {
		if key.roomID == roomID {
			delete(t.counters, key)
		}
	}
}

// recompute counts from the log while holding the room lock. Increment and
// Reset from senders and readers run under the same lock, so the stored
// count cannot overwrite a newer one. Called inside a send transaction the
// lock is already held and ExecTx joins it.
func (t *UnreadTracker) recompute(ctx context.Context, key counterKey) (int, error) {
	var n int
	err := t.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := t.messages.LockRoom(txCtx, key.roomID); err != nil {
			return err
		}

		var err error
		n, err = t.messages.CountUnread(txCtx, key.roomID, key.participantID)
		if err != nil {
			return err
		}

		t.mu.Lock()
		t.counters[key] = n
		t.mu.Unlock()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
