package chat

import (
	"context"

	"pathway/internal/domain/models/chat"
)

// ConversationRepository defines data access for conversations
type ConversationRepository interface {
	// CreateConversation inserts a conversation and fills ID/timestamps
	CreateConversation(ctx context.Context, conv *chat.Conversation) error

	// GetConversation retrieves a conversation by ID
	// Returns domain.ErrNotFound if not found
	GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error)

	// ListConversations retrieves the owner's conversations, most recent first
	ListConversations(ctx context.Context, ownerID string) ([]chat.Conversation, error)

	// UpdateView sets the current_branch_id view pointer (nil = main)
	// Returns domain.ErrNotFound if not found
	UpdateView(ctx context.Context, conversationID string, branchID *string) error

	// TouchConversation bumps updated_at after a line changed
	TouchConversation(ctx context.Context, conversationID string) error
}
