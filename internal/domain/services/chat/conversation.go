package chat

import (
	"context"

	"pathway/internal/domain/models/chat"
)

// ConversationService defines conversation lifecycle and the exchange flow
// on whichever line the caller currently views
type ConversationService interface {
	// CreateConversation starts a conversation owned by the caller
	CreateConversation(ctx context.Context, req *CreateConversationRequest) (*chat.Conversation, error)

	// GetConversation returns a conversation the caller owns
	GetConversation(ctx context.Context, conversationID, userID string) (*chat.Conversation, error)

	// ListConversations returns the caller's conversations
	ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error)

	// GetActiveLine returns the messages of the currently viewed line
	GetActiveLine(ctx context.Context, conversationID, userID string) ([]chat.Message, error)

	// SendMessage appends a user message to the viewed line and the reply.
	// A provider failure is reported in Exchange.ReplyError, not as err.
	SendMessage(ctx context.Context, req *SendMessageRequest) (*chat.Exchange, error)

	// RetryReply regenerates the reply when the viewed line ends with a user message
	RetryReply(ctx context.Context, conversationID, userID string) (*chat.Exchange, error)

	// EditMessage rewrites a user message, truncates everything after it in
	// the viewed line and appends a fresh reply. Irreversible.
	EditMessage(ctx context.Context, req *EditMessageRequest) (*chat.Exchange, error)

	// SetReaction adds or removes one reaction kind on a message
	SetReaction(ctx context.Context, req *SetReactionRequest) (*chat.Message, error)
}

// CreateConversationRequest is the DTO for starting a conversation
type CreateConversationRequest struct {
	UserID string `json:"-"` // Set by handler from auth context
	Title  string `json:"title"`
}

// SendMessageRequest is the DTO for a user submission
type SendMessageRequest struct {
	ConversationID string            `json:"-"`
	UserID         string            `json:"-"`
	Content        string            `json:"content"`
	Attachments    []chat.Attachment `json:"attachments,omitempty"`
}

// EditMessageRequest is the DTO for edit-in-place
type EditMessageRequest struct {
	ConversationID string `json:"-"`
	MessageID      string `json:"-"`
	UserID         string `json:"-"`
	Content        string `json:"content"`
}

// SetReactionRequest is the DTO for toggling a reaction
type SetReactionRequest struct {
	MessageID string
	UserID    string
	Kind      chat.ReactionKind
	On        bool
}
