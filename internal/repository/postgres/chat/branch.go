package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pathway/internal/domain"
	"pathway/internal/domain/models/chat"
	chatRepo "pathway/internal/domain/repositories/chat"
	"pathway/internal/repository/postgres"
)

const branchColumns = `id, conversation_id, parent_branch_id, fork_message_id, label,
	is_active, created_at, updated_at, deleted_at`

// PostgresBranchRepository implements BranchRepository using PostgreSQL
type PostgresBranchRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewBranchRepository creates a new PostgresBranchRepository
func NewBranchRepository(config *postgres.RepositoryConfig) chatRepo.BranchRepository {
	return &PostgresBranchRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanBranch(row pgx.Row) (*chat.Branch, error) {
	var b chat.Branch
	err := row.Scan(
		&b.ID,
		&b.ConversationID,
		&b.ParentBranchID,
		&b.ForkMessageID,
		&b.Label,
		&b.IsActive,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBranch inserts a branch
func (r *PostgresBranchRepository) CreateBranch(ctx context.Context, branch *chat.Branch) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (conversation_id, parent_branch_id, fork_message_id, label, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id, created_at, updated_at
	`, r.tables.Branches)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		branch.ConversationID,
		branch.ParentBranchID,
		branch.ForkMessageID,
		branch.Label,
		branch.IsActive,
		branch.CreatedAt,
	).Scan(&branch.ID, &branch.CreatedAt, &branch.UpdatedAt)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return domain.NewNotFound("message", branch.ForkMessageID)
		}
		return fmt.Errorf("create branch: %w", err)
	}

	return nil
}

// GetBranch retrieves a branch by ID
func (r *PostgresBranchRepository) GetBranch(ctx context.Context, branchID string) (*chat.Branch, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, branchColumns, r.tables.Branches)

	executor := postgres.GetExecutor(ctx, r.pool)
	b, err := scanBranch(executor.QueryRow(ctx, query, branchID))
	if err != nil {
		return nil, postgres.MapNotFound(err, "branch", branchID, "get branch")
	}
	return b, nil
}

// ListBranches returns a conversation's branches
func (r *PostgresBranchRepository) ListBranches(ctx context.Context, conversationID string, includeInactive bool) ([]chat.Branch, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE conversation_id = $1 AND (is_active OR $2)
		ORDER BY created_at ASC, id ASC
	`, branchColumns, r.tables.Branches)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, conversationID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()

	branches := []chat.Branch{}
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		branches = append(branches, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate branches: %w", err)
	}

	return branches, nil
}

// UpdateBranch persists the mutable fields
func (r *PostgresBranchRepository) UpdateBranch(ctx context.Context, branch *chat.Branch) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET label = $1, is_active = $2, updated_at = $3, deleted_at = $4
		WHERE id = $5
	`, r.tables.Branches)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		branch.Label,
		branch.IsActive,
		branch.UpdatedAt,
		branch.DeletedAt,
		branch.ID,
	)
	if err != nil {
		return fmt.Errorf("update branch: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFound("branch", branch.ID)
	}

	return nil
}

// PurgeBranch hard-deletes the branch row
func (r *PostgresBranchRepository) PurgeBranch(ctx context.Context, branchID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Branches)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, branchID)
	if err != nil {
		return fmt.Errorf("purge branch: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFound("branch", branchID)
	}

	return nil
}
