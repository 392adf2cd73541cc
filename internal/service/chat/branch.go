package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"pathway/internal/config"
	"pathway/internal/domain"
	"pathway/internal/domain/models/chat"
	"pathway/internal/domain/repositories"
	chatRepo "pathway/internal/domain/repositories/chat"
	"pathway/internal/domain/services"
	chatSvc "pathway/internal/domain/services/chat"
	"pathway/internal/service/undo"
)

// purgeTimeout bounds the storage work of one committed branch delete
const purgeTimeout = 30 * time.Second

// BranchManager implements BranchService. It mutates the branch arena and
// owns the per-conversation view pointer; deletes are staged on an undo
// timer and purged when it fires.
type BranchManager struct {
	conversations chatRepo.ConversationRepository
	branches      chatRepo.BranchRepository
	store         *MessageStore
	txManager     repositories.TransactionManager
	authorizer    services.ResourceAuthorizer
	stager        *undo.Stager
	logger        *slog.Logger
}

// NewBranchManager creates a branch manager
func NewBranchManager(
	conversations chatRepo.ConversationRepository,
	branches chatRepo.BranchRepository,
	store *MessageStore,
	txManager repositories.TransactionManager,
	authorizer services.ResourceAuthorizer,
	stager *undo.Stager,
	logger *slog.Logger,
) *BranchManager {
	return &BranchManager{
		conversations: conversations,
		branches:      branches,
		store:         store,
		txManager:     txManager,
		authorizer:    authorizer,
		stager:        stager,
		logger:        logger,
	}
}

var _ chatSvc.BranchService = (*BranchManager)(nil)

// CreateBranch forks the viewed line at FromMessageID and views the new branch
func (m *BranchManager) CreateBranch(ctx context.Context, req *chatSvc.CreateBranchRequest) (*chat.BranchWithMessages, error) {
	req.Label = normalizeLabel(req.Label)
	if err := validateCreateBranchRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	conv, err := m.authorizer.CanAccessConversation(ctx, req.UserID, req.ConversationID)
	if err != nil {
		return nil, err
	}

	parent := conv.ActiveLine()
	current, err := m.store.Line(ctx, parent)
	if err != nil {
		return nil, err
	}
	if indexOf(current, req.FromMessageID) < 0 {
		return nil, domain.NewNotFound("message", req.FromMessageID)
	}

	now := m.store.Now()
	branch := &chat.Branch{
		ConversationID: conv.ID,
		ParentBranchID: parent.BranchID,
		ForkMessageID:  req.FromMessageID,
		Label:          req.Label,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var copies []chat.Message
	err = m.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := m.branches.CreateBranch(txCtx, branch); err != nil {
			return err
		}

		copies, err = m.store.Fork(txCtx, parent, req.FromMessageID, branch.Line())
		if err != nil {
			return err
		}

		return m.conversations.UpdateView(txCtx, conv.ID, &branch.ID)
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("branch created",
		"id", branch.ID,
		"conversation_id", conv.ID,
		"parent", parent.Key(),
		"fork_message_id", req.FromMessageID,
		"copied", len(copies),
	)

	tree, err := LoadThreadTree(ctx, m.branches, conv.ID)
	if err != nil {
		return nil, err
	}

	return &chat.BranchWithMessages{
		Branch:   branch,
		Lineage:  tree.Lineage(branch.ID),
		Messages: copies,
	}, nil
}

// SwitchBranch moves the view pointer; nil selects the main line
func (m *BranchManager) SwitchBranch(ctx context.Context, conversationID, userID string, branchID *string) (*chat.Conversation, error) {
	conv, err := m.authorizer.CanAccessConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	if branchID != nil && *branchID == "" {
		branchID = nil
	}

	if branchID != nil {
		branch, err := m.branches.GetBranch(ctx, *branchID)
		if err != nil {
			return nil, err
		}
		if !branch.IsActive || branch.ConversationID != conv.ID {
			return nil, domain.NewNotFound("branch", *branchID)
		}
	}

	if err := m.conversations.UpdateView(ctx, conv.ID, branchID); err != nil {
		return nil, err
	}
	conv.CurrentBranchID = branchID

	m.logger.Debug("view switched",
		"conversation_id", conv.ID,
		"line", conv.ActiveLine().Key(),
	)

	return conv, nil
}

// RenameBranch changes a branch label; nil or blank clears it
func (m *BranchManager) RenameBranch(ctx context.Context, branchID, userID string, label *string) (*chat.Branch, error) {
	label = normalizeLabel(label)
	if err := validation.Validate(label, validation.NilOrNotEmpty, validation.Length(1, config.MaxBranchLabelLength)); err != nil {
		return nil, fmt.Errorf("%w: label: %v", domain.ErrValidation, err)
	}

	branch, _, err := m.authorizer.CanAccessBranch(ctx, userID, branchID)
	if err != nil {
		return nil, err
	}
	if !branch.IsActive {
		return nil, domain.NewNotFound("branch", branchID)
	}

	branch.Label = label
	branch.UpdatedAt = m.store.Now()
	if err := m.branches.UpdateBranch(ctx, branch); err != nil {
		return nil, err
	}

	m.logger.Info("branch renamed",
		"id", branch.ID,
		"conversation_id", branch.ConversationID,
	)

	return branch, nil
}

// DeleteBranch soft-deletes a branch and stages its purge. When the branch
// was being viewed the view falls back to main in the same transaction.
// Branches forked from it keep their own lines.
func (m *BranchManager) DeleteBranch(ctx context.Context, branchID, userID string) (*chat.Branch, error) {
	branch, conv, err := m.authorizer.CanAccessBranch(ctx, userID, branchID)
	if err != nil {
		return nil, err
	}
	if !branch.IsActive {
		return nil, domain.NewNotFound("branch", branchID)
	}

	now := m.store.Now()
	branch.IsActive = false
	branch.DeletedAt = &now
	branch.UpdatedAt = now

	viewReset := conv.IsViewingBranch(branch.ID)
	err = m.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := m.branches.UpdateBranch(txCtx, branch); err != nil {
			return err
		}
		if viewReset {
			return m.conversations.UpdateView(txCtx, conv.ID, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	purged := *branch
	m.stager.Stage(branch.ID, func() { m.purge(&purged) })

	m.logger.Info("branch deleted",
		"id", branch.ID,
		"conversation_id", branch.ConversationID,
		"view_reset", viewReset,
		"undo_window", m.stager.Window(),
	)

	return branch, nil
}

// RestoreBranch reactivates a deleted branch while its undo window is open.
// The view pointer is left where it is.
func (m *BranchManager) RestoreBranch(ctx context.Context, branchID, userID string) (*chat.Branch, error) {
	branch, _, err := m.authorizer.CanAccessBranch(ctx, userID, branchID)
	if err != nil {
		return nil, err
	}
	if branch.IsActive {
		return branch, nil
	}

	if !m.stager.Cancel(branch.ID) {
		return nil, domain.NewNotFound("branch", branchID)
	}

	branch.IsActive = true
	branch.DeletedAt = nil
	branch.UpdatedAt = m.store.Now()
	if err := m.branches.UpdateBranch(ctx, branch); err != nil {
		return nil, err
	}

	m.logger.Info("branch restored",
		"id", branch.ID,
		"conversation_id", branch.ConversationID,
	)

	return branch, nil
}

// purge removes a branch and its line for good
func (m *BranchManager) purge(branch *chat.Branch) {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	var removed int
	err := m.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var err error
		removed, err = m.store.Drop(txCtx, branch.Line())
		if err != nil {
			return err
		}
		return m.branches.PurgeBranch(txCtx, branch.ID)
	})
	if err != nil {
		m.logger.Error("branch purge failed",
			"id", branch.ID,
			"conversation_id", branch.ConversationID,
			"error", err,
		)
		return
	}

	m.logger.Info("branch purged",
		"id", branch.ID,
		"conversation_id", branch.ConversationID,
		"messages", removed,
	)
}

// ListBranches returns the active branches of a conversation
func (m *BranchManager) ListBranches(ctx context.Context, conversationID, userID string) ([]chat.Branch, error) {
	if _, err := m.authorizer.CanAccessConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return m.branches.ListBranches(ctx, conversationID, false)
}

// GetBranchLine returns an active branch with its messages
func (m *BranchManager) GetBranchLine(ctx context.Context, branchID, userID string) (*chat.BranchWithMessages, error) {
	branch, conv, err := m.authorizer.CanAccessBranch(ctx, userID, branchID)
	if err != nil {
		return nil, err
	}
	if !branch.IsActive {
		return nil, domain.NewNotFound("branch", branchID)
	}

	msgs, err := m.store.Line(ctx, branch.Line())
	if err != nil {
		return nil, err
	}

	tree, err := LoadThreadTree(ctx, m.branches, conv.ID)
	if err != nil {
		return nil, err
	}

	return &chat.BranchWithMessages{
		Branch:   branch,
		Lineage:  tree.Lineage(branch.ID),
		Messages: msgs,
	}, nil
}

// ListBranchPoints reports the fork points of the viewed line
func (m *BranchManager) ListBranchPoints(ctx context.Context, conversationID, userID string) ([]chat.BranchPoint, error) {
	conv, err := m.authorizer.CanAccessConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	tree, err := LoadThreadTree(ctx, m.branches, conv.ID)
	if err != nil {
		return nil, err
	}

	line := conv.ActiveLine()
	msgs, err := m.store.Line(ctx, line)
	if err != nil {
		return nil, err
	}

	return tree.BranchPoints(line, msgs), nil
}

func normalizeLabel(label *string) *string {
	if label == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*label)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func validateCreateBranchRequest(req *chatSvc.CreateBranchRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.ConversationID, validation.Required),
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.FromMessageID, validation.Required),
		validation.Field(&req.Label, validation.NilOrNotEmpty, validation.Length(1, config.MaxBranchLabelLength)),
	)
}
