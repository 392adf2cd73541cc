package chat

import (
	"context"

	"pathway/internal/domain/models/chat"
)

// BranchRepository defines data access for the branch arena
type BranchRepository interface {
	// CreateBranch inserts a branch and fills ID/timestamps
	CreateBranch(ctx context.Context, branch *chat.Branch) error

	// GetBranch retrieves a branch by ID, active or not
	// Returns domain.ErrNotFound if not found (or purged)
	GetBranch(ctx context.Context, branchID string) (*chat.Branch, error)

	// ListBranches returns a conversation's branches ordered by created_at
	ListBranches(ctx context.Context, conversationID string, includeInactive bool) ([]chat.Branch, error)

	// UpdateBranch persists label, is_active, deleted_at and updated_at
	// Returns domain.ErrNotFound if not found
	UpdateBranch(ctx context.Context, branch *chat.Branch) error

	// PurgeBranch hard-deletes the branch row
	PurgeBranch(ctx context.Context, branchID string) error
}
