package services

import (
	"context"

	"pathway/internal/domain/models/chat"
	"pathway/internal/domain/models/room"
)

// ResourceAuthorizer checks if a participant can access resources.
// Conversations (and their branches and messages) belong to their owner;
// rooms belong to their participants.
//
// Each check returns the loaded resource so callers do not fetch it twice.
// Missing ids yield a NotFoundError, foreign ones an AccessDeniedError.
type ResourceAuthorizer interface {
	// CanAccessConversation checks the user owns the conversation
	CanAccessConversation(ctx context.Context, userID, conversationID string) (*chat.Conversation, error)

	// CanAccessBranch checks the user owns the branch's conversation
	CanAccessBranch(ctx context.Context, userID, branchID string) (*chat.Branch, *chat.Conversation, error)

	// CanAccessMessage checks the user owns the message's conversation
	CanAccessMessage(ctx context.Context, userID, messageID string) (*chat.Message, error)

	// CanAccessRoom checks the user is a participant of the room
	CanAccessRoom(ctx context.Context, userID, roomID string) (*room.Room, error)
}
