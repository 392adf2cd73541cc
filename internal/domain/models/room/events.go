package room

import (
	"time"
)

// EventType names a realtime event pushed to connected room members
type EventType string

// Realtime event types
const (
	EventNewMessage        EventType = "new-message"
	EventMessagesRead      EventType = "messages-read"
	EventUserTyping        EventType = "user-typing"
	EventUserStoppedTyping EventType = "user-stopped-typing"
	EventRoomDeactivated   EventType = "room-deactivated"
)

// Event is the envelope written to every connection
type Event struct {
	Type    EventType   `json:"event"`
	RoomID  string      `json:"room_id"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

// NewEvent builds an event envelope
func NewEvent(eventType EventType, roomID string, payload interface{}) Event {
	return Event{
		Type:    eventType,
		RoomID:  roomID,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	}
}

// MessagesReadPayload lets senders flip single-check to double-check
type MessagesReadPayload struct {
	ReaderID string    `json:"reader_id"`
	Count    int       `json:"count"`
	ReadAt   time.Time `json:"read_at"`
}

// TypingPayload carries typing presence. ExpiresAt is set on user-typing:
// observers treat the signal as stopped after it even without a stop event.
type TypingPayload struct {
	ParticipantID string     `json:"participant_id"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// InboundFrame is what a client may send over its realtime connection
type InboundFrame struct {
	Type string `json:"type"` // "typing-start" | "typing-stop" | "ping"
}

// Inbound frame types
const (
	FrameTypingStart = "typing-start"
	FrameTypingStop  = "typing-stop"
	FramePing        = "ping"
)
