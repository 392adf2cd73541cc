package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pathway/internal/domain"
	"pathway/internal/domain/models/chat"
	chatRepo "pathway/internal/domain/repositories/chat"
	"pathway/internal/repository/postgres"
)

// PostgresConversationRepository implements ConversationRepository using PostgreSQL
type PostgresConversationRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewConversationRepository creates a new PostgresConversationRepository
func NewConversationRepository(config *postgres.RepositoryConfig) chatRepo.ConversationRepository {
	return &PostgresConversationRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// CreateConversation inserts a conversation
func (r *PostgresConversationRepository) CreateConversation(ctx context.Context, conv *chat.Conversation) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (owner_id, title, current_branch_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, created_at, updated_at
	`, r.tables.Conversations)

	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now().UTC()
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		conv.OwnerID,
		conv.Title,
		conv.CurrentBranchID,
		conv.CreatedAt,
	).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}

	return nil
}

// GetConversation retrieves a conversation by ID
func (r *PostgresConversationRepository) GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, owner_id, title, current_branch_id, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Conversations)

	var conv chat.Conversation
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, conversationID).Scan(
		&conv.ID,
		&conv.OwnerID,
		&conv.Title,
		&conv.CurrentBranchID,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		return nil, postgres.MapNotFound(err, "conversation", conversationID, "get conversation")
	}

	return &conv, nil
}

// ListConversations retrieves the owner's conversations
func (r *PostgresConversationRepository) ListConversations(ctx context.Context, ownerID string) ([]chat.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, owner_id, title, current_branch_id, created_at, updated_at
		FROM %s
		WHERE owner_id = $1
		ORDER BY updated_at DESC
	`, r.tables.Conversations)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	convs := []chat.Conversation{}
	for rows.Next() {
		var conv chat.Conversation
		if err := rows.Scan(
			&conv.ID,
			&conv.OwnerID,
			&conv.Title,
			&conv.CurrentBranchID,
			&conv.CreatedAt,
			&conv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	return convs, nil
}

// UpdateView sets the view pointer
func (r *PostgresConversationRepository) UpdateView(ctx context.Context, conversationID string, branchID *string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET current_branch_id = $1
		WHERE id = $2
	`, r.tables.Conversations)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, branchID, conversationID)
	if err != nil {
		return fmt.Errorf("update view: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFound("conversation", conversationID)
	}

	return nil
}

// TouchConversation bumps updated_at
func (r *PostgresConversationRepository) TouchConversation(ctx context.Context, conversationID string) error {
	query := fmt.Sprintf(`UPDATE %s SET updated_at = $1 WHERE id = $2`, r.tables.Conversations)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, time.Now().UTC(), conversationID)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFound("conversation", conversationID)
	}

	return nil
}
