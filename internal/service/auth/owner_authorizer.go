package auth

import (
	"context"
	"fmt"

	"pathway/internal/domain"
	"pathway/internal/domain/models/chat"
	"pathway/internal/domain/models/room"
	chatRepo "pathway/internal/domain/repositories/chat"
	roomRepo "pathway/internal/domain/repositories/room"
)

// OwnerBasedAuthorizer implements ResourceAuthorizer using ownership and
// membership checks.
type OwnerBasedAuthorizer struct {
	conversationRepo chatRepo.ConversationRepository
	branchRepo       chatRepo.BranchRepository
	messageRepo      chatRepo.MessageRepository
	roomRepo         roomRepo.RoomRepository
}

// NewOwnerBasedAuthorizer creates a new ownership-based authorizer
func NewOwnerBasedAuthorizer(
	conversationRepo chatRepo.ConversationRepository,
	branchRepo chatRepo.BranchRepository,
	messageRepo chatRepo.MessageRepository,
	roomRepo roomRepo.RoomRepository,
) *OwnerBasedAuthorizer {
	return &OwnerBasedAuthorizer{
		conversationRepo: conversationRepo,
		branchRepo:       branchRepo,
		messageRepo:      messageRepo,
		roomRepo:         roomRepo,
	}
}

// CanAccessConversation checks if user owns the conversation
func (a *OwnerBasedAuthorizer) CanAccessConversation(ctx context.Context, userID, conversationID string) (*chat.Conversation, error) {
	conv, err := a.conversationRepo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.OwnerID != userID {
		return nil, domain.NewAccessDenied("conversation", conversationID, userID)
	}
	return conv, nil
}

// CanAccessBranch checks if user owns the branch's conversation
func (a *OwnerBasedAuthorizer) CanAccessBranch(ctx context.Context, userID, branchID string) (*chat.Branch, *chat.Conversation, error) {
	branch, err := a.branchRepo.GetBranch(ctx, branchID)
	if err != nil {
		return nil, nil, err
	}

	conv, err := a.CanAccessConversation(ctx, userID, branch.ConversationID)
	if err != nil {
		return nil, nil, fmt.Errorf("branch %s: %w", branchID, err)
	}
	return branch, conv, nil
}

// CanAccessMessage checks if user owns the message's conversation
func (a *OwnerBasedAuthorizer) CanAccessMessage(ctx context.Context, userID, messageID string) (*chat.Message, error) {
	msg, err := a.messageRepo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if _, err := a.CanAccessConversation(ctx, userID, msg.ConversationID); err != nil {
		return nil, fmt.Errorf("message %s: %w", messageID, err)
	}
	return msg, nil
}

// CanAccessRoom checks if user is a participant of the room
func (a *OwnerBasedAuthorizer) CanAccessRoom(ctx context.Context, userID, roomID string) (*room.Room, error) {
	r, err := a.roomRepo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !r.HasParticipant(userID) {
		return nil, domain.NewAccessDenied("room", roomID, userID)
	}
	return r, nil
}
