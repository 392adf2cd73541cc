package room

import (
	"context"

	"pathway/internal/domain/models/room"
)

// Connection is a live realtime handle for one participant in one room.
// Send must not block on a slow peer; a full or closed connection returns
// an error and the hub treats it as a delivery failure.
type Connection interface {
	ID() string
	Send(event room.Event) error
	Close()
}

// RoomService defines the room operations exposed to controllers
type RoomService interface {
	// OpenRoom creates the room for an accepted mentor connection, or returns
	// the existing one for the same participant set
	OpenRoom(ctx context.Context, req *OpenRoomRequest) (*room.Room, error)

	// DeactivateRoom marks a room inactive and notifies connected members
	DeactivateRoom(ctx context.Context, roomID, userID string) (*room.Room, error)

	// ListRooms returns the caller's rooms with unread counts
	ListRooms(ctx context.Context, userID string) ([]room.Summary, error)

	// GetMessages returns one page of history and the caller's unread counter
	GetMessages(ctx context.Context, roomID, userID string, page, limit int) (*room.MessagePage, error)

	// SendMessage persists, counts and broadcasts a message
	SendMessage(ctx context.Context, req *SendRoomMessageRequest) (*room.SendResult, error)

	// MarkRead clears the caller's counter and flips read flags in one batch
	MarkRead(ctx context.Context, roomID, userID string) (*room.ReadResult, error)

	// StartTyping records and broadcasts typing presence
	StartTyping(ctx context.Context, roomID, userID string) error

	// StopTyping clears typing presence; no-op when none is active
	StopTyping(ctx context.Context, roomID, userID string) error

	// Join registers a live connection after checking membership
	Join(ctx context.Context, roomID, userID string, conn Connection) error

	// Leave removes the connection if it is still the registered one
	Leave(roomID, userID, connectionID string)
}

// OpenRoomRequest is the DTO for opening a room
type OpenRoomRequest struct {
	UserID         string   `json:"-"`
	ParticipantIDs []string `json:"participant_ids"`
}

// SendRoomMessageRequest is the DTO for sending a room message
type SendRoomMessageRequest struct {
	RoomID   string `json:"-"`
	SenderID string `json:"-"`
	Content  string `json:"content"`
}
