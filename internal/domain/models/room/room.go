package room

import (
	"slices"
	"time"
)

// Room is a realtime channel between the participants of one accepted
// mentor connection. Rooms are never hard-deleted, only deactivated.
type Room struct {
	ID             string    `json:"id" db:"id"`
	ParticipantIDs []string  `json:"participant_ids" db:"participant_ids"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	LastActivity   time.Time `json:"last_activity" db:"last_activity"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// HasParticipant reports whether id is a member of the room
func (r *Room) HasParticipant(id string) bool {
	return slices.Contains(r.ParticipantIDs, id)
}

// OtherParticipants returns every member except id
func (r *Room) OtherParticipants(id string) []string {
	others := make([]string, 0, len(r.ParticipantIDs))
	for _, p := range r.ParticipantIDs {
		if p != id {
			others = append(others, p)
		}
	}
	return others
}

// Message is one entry of a room's durable log, ordered by CreatedAt
type Message struct {
	ID        string     `json:"id" db:"id"`
	RoomID    string     `json:"room_id" db:"room_id"`
	SenderID  string     `json:"sender_id" db:"sender_id"`
	Content   string     `json:"content" db:"content"`
	IsRead    bool       `json:"is_read" db:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Summary is a room as listed for one participant
type Summary struct {
	Room
	LastMessage *Message `json:"last_message,omitempty"`
	UnreadCount int      `json:"unread_count"`
}

// MessagePage is one page of a room's history plus the caller's counter
type MessagePage struct {
	RoomID      string    `json:"room_id"`
	Messages    []Message `json:"messages"`
	Page        int       `json:"page"`
	Limit       int       `json:"limit"`
	Total       int       `json:"total"`
	HasMore     bool      `json:"has_more"`
	UnreadCount int       `json:"unread_count"`
}

// SendResult is returned to the sender of a room message
type SendResult struct {
	Message     *Message `json:"message"`
	UnreadCount int      `json:"unread_count"` // sender's own counter
}

// ReadResult is returned to a participant acknowledging reads
type ReadResult struct {
	RoomID      string `json:"room_id"`
	MarkedRead  int    `json:"marked_read"`
	UnreadCount int    `json:"unread_count"`
}
