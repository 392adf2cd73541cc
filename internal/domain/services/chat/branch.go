package chat

import (
	"context"

	"pathway/internal/domain/models/chat"
)

// BranchService defines branch tree mutations and the per-conversation view
// pointer. All operations fail with a NotFoundError on unknown or inactive ids.
type BranchService interface {
	// CreateBranch forks the viewed line at FromMessageID (inclusive) and
	// switches the view to the new branch
	CreateBranch(ctx context.Context, req *CreateBranchRequest) (*chat.BranchWithMessages, error)

	// SwitchBranch moves the view pointer; nil returns to the main line
	SwitchBranch(ctx context.Context, conversationID, userID string, branchID *string) (*chat.Conversation, error)

	// RenameBranch changes the label only
	RenameBranch(ctx context.Context, branchID, userID string, label *string) (*chat.Branch, error)

	// DeleteBranch soft-deletes a branch; a view on it falls back to main
	DeleteBranch(ctx context.Context, branchID, userID string) (*chat.Branch, error)

	// RestoreBranch undoes a delete while the undo window is open
	RestoreBranch(ctx context.Context, branchID, userID string) (*chat.Branch, error)

	// ListBranches returns the active branches of a conversation
	ListBranches(ctx context.Context, conversationID, userID string) ([]chat.Branch, error)

	// GetBranchLine returns an active branch and its messages
	GetBranchLine(ctx context.Context, branchID, userID string) (*chat.BranchWithMessages, error)

	// ListBranchPoints reports which messages of the viewed line have branches
	ListBranchPoints(ctx context.Context, conversationID, userID string) ([]chat.BranchPoint, error)
}

// CreateBranchRequest is the DTO for forking a line
type CreateBranchRequest struct {
	ConversationID string  `json:"-"`
	UserID         string  `json:"-"`
	FromMessageID  string  `json:"from_message_id"`
	Label          *string `json:"label,omitempty"`
}
