package room

import (
	"sync"
	"time"

	"pathway/internal/clock"
	"pathway/internal/domain/models/room"
)

// DefaultTypingWindow is how long a typing signal stays fresh without a
// repeat or an explicit stop
const DefaultTypingWindow = 2 * time.Second

type typingState struct {
	expiresAt time.Time
	timer     clock.Timer
}

// TypingCoordinator holds ephemeral typing presence. Every start arms an
// expiry timer; when it fires the coordinator broadcasts the stop itself,
// so a lost stop signal never leaves a stale indicator.
type TypingCoordinator struct {
	hub     *Hub
	clock   clock.Clock
	window  time.Duration
	metrics *Metrics

	mu     sync.Mutex
	states map[counterKey]*typingState
}

// NewTypingCoordinator creates a coordinator with the given freshness window
func NewTypingCoordinator(hub *Hub, c clock.Clock, window time.Duration, metrics *Metrics) *TypingCoordinator {
	if window <= 0 {
		window = DefaultTypingWindow
	}
	return &TypingCoordinator{
		hub:     hub,
		clock:   c,
		window:  window,
		metrics: metrics,
		states:  make(map[counterKey]*typingState),
	}
}

// Start records a typing signal, re-arms its expiry and broadcasts
// user-typing to the other members
func (c *TypingCoordinator) Start(roomID, participantID string) time.Time {
	key := counterKey{roomID, participantID}
	expiresAt := c.clock.Now().Add(c.window)

	c.mu.Lock()
	if prev, ok := c.states[key]; ok {
		prev.timer.Stop()
	}
	state := &typingState{expiresAt: expiresAt}
	state.timer = c.clock.AfterFunc(c.window, func() { c.expire(key, state) })
	c.states[key] = state
	c.mu.Unlock()

	c.hub.Broadcast(room.NewEvent(room.EventUserTyping, roomID, room.TypingPayload{
		ParticipantID: participantID,
		ExpiresAt:     &expiresAt,
	}), participantID)

	return expiresAt
}

// Stop clears typing presence and broadcasts user-stopped-typing. It does
// nothing when the participant is not typing.
func (c *TypingCoordinator) Stop(roomID, participantID string) bool {
	if !c.clear(counterKey{roomID, participantID}) {
		return false
	}
	c.broadcastStopped(roomID, participantID)
	return true
}

// Suppress clears typing presence without an event. Used when a real
// message from the participant arrives, which observers treat as the stop.
func (c *TypingCoordinator) Suppress(roomID, participantID string) {
	c.clear(counterKey{roomID, participantID})
}

// IsTyping reports whether a fresh signal exists
func (c *TypingCoordinator) IsTyping(roomID, participantID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.states[counterKey{roomID, participantID}]
	return ok && c.clock.Now().Before(state.expiresAt)
}

// ClearRoom drops every signal of a room silently
func (c *TypingCoordinator) ClearRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, state := range c.states {
		if key.roomID == roomID {
			state.timer.Stop()
			delete(c.states, key)
		}
	}
}

func (c *TypingCoordinator) clear(key counterKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.states[key]
	if !ok {
		return false
	}
	state.timer.Stop()
	delete(c.states, key)
	return true
}

// expire fires when a signal was neither refreshed nor stopped in time
func (c *TypingCoordinator) expire(key counterKey, state *typingState) {
	c.mu.Lock()
	if c.states[key] != state {
		c.mu.Unlock()
		return
	}
	delete(c.states, key)
	c.mu.Unlock()

	c.metrics.TypingExpired.Inc()
	c.broadcastStopped(key.roomID, key.participantID)
}

func (c *TypingCoordinator) broadcastStopped(roomID, participantID string) {
	c.hub.Broadcast(room.NewEvent(room.EventUserStoppedTyping, roomID, room.TypingPayload{
		ParticipantID: participantID,
	}), participantID)
}
