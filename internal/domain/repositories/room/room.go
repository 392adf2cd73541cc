package room

import (
	"context"
	"time"

	"pathway/internal/domain/models/room"
)

// RoomRepository defines data access for rooms
type RoomRepository interface {
	// CreateRoom inserts a room and fills ID/timestamps
	CreateRoom(ctx context.Context, r *room.Room) error

	// GetRoom retrieves a room by ID (active or not)
	// Returns domain.ErrNotFound if not found
	GetRoom(ctx context.Context, roomID string) (*room.Room, error)

	// FindRoomByParticipants finds the room with exactly this participant set
	// Returns domain.ErrNotFound if none exists
	FindRoomByParticipants(ctx context.Context, participantIDs []string) (*room.Room, error)

	// ListRoomsForParticipant returns the participant's rooms by last_activity desc
	ListRoomsForParticipant(ctx context.Context, participantID string) ([]room.Room, error)

	// SetActive flips is_active
	SetActive(ctx context.Context, roomID string, active bool) error

	// TouchRoom sets last_activity
	TouchRoom(ctx context.Context, roomID string, at time.Time) error
}
