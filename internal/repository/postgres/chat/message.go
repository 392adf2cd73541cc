package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pathway/internal/domain"
	"pathway/internal/domain/models/chat"
	chatRepo "pathway/internal/domain/repositories/chat"
	"pathway/internal/repository/postgres"
)

const messageColumns = `id, conversation_id, branch_id, sequence, role, content,
	attachments, reactions, source_message_id, created_at, edited_at`

// PostgresMessageRepository implements MessageRepository using PostgreSQL.
// A line is (conversation_id, branch_id) with branch_id NULL for main.
type PostgresMessageRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewMessageRepository creates a new PostgresMessageRepository
func NewMessageRepository(config *postgres.RepositoryConfig) chatRepo.MessageRepository {
	return &PostgresMessageRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanMessage(row pgx.Row) (*chat.Message, error) {
	var (
		msg         chat.Message
		role        string
		attachments []byte
		reactions   int16
	)
	err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.BranchID,
		&msg.Sequence,
		&role,
		&msg.Content,
		&attachments,
		&reactions,
		&msg.SourceMessageID,
		&msg.CreatedAt,
		&msg.EditedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.Role = chat.Role(role)
	msg.Reactions = chat.ReactionSet(reactions)
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &msg.Attachments); err != nil {
			return nil, fmt.Errorf("decode attachments: %w", err)
		}
	}
	return &msg, nil
}

// LockLine takes a transaction-scoped advisory lock on the line
func (r *PostgresMessageRepository) LockLine(ctx context.Context, line chat.LineRef) error {
	return postgres.LockKey(ctx, r.pool, line.Key())
}

// LastSequence returns the line's tail sequence
func (r *PostgresMessageRepository) LastSequence(ctx context.Context, line chat.LineRef) (int, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(sequence), 0)
		FROM %s
		WHERE conversation_id = $1 AND branch_id IS NOT DISTINCT FROM $2
	`, r.tables.Messages)

	var last int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, line.ConversationID, line.BranchID).Scan(&last); err != nil {
		return 0, fmt.Errorf("last sequence: %w", err)
	}
	return last, nil
}

// InsertMessages persists messages in order
func (r *PostgresMessageRepository) InsertMessages(ctx context.Context, messages []*chat.Message) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (conversation_id, branch_id, sequence, role, content,
			attachments, reactions, source_message_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, r.tables.Messages)

	executor := postgres.GetExecutor(ctx, r.pool)
	for _, msg := range messages {
		var attachments []byte
		if len(msg.Attachments) > 0 {
			encoded, err := json.Marshal(msg.Attachments)
			if err != nil {
				return fmt.Errorf("encode attachments: %w", err)
			}
			attachments = encoded
		}

		err := executor.QueryRow(ctx, query,
			msg.ConversationID,
			msg.BranchID,
			msg.Sequence,
			string(msg.Role),
			msg.Content,
			attachments,
			int16(msg.Reactions),
			msg.SourceMessageID,
			msg.CreatedAt,
		).Scan(&msg.ID)
		if err != nil {
			if postgres.IsPgDuplicateError(err) {
				return fmt.Errorf("insert message: sequence %d already taken in %s: %w", msg.Sequence, msg.Line().Key(), domain.ErrConflict)
			}
			return fmt.Errorf("insert message: %w", err)
		}
	}

	return nil
}

// GetMessage retrieves a message by ID
func (r *PostgresMessageRepository) GetMessage(ctx context.Context, messageID string) (*chat.Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, messageColumns, r.tables.Messages)

	executor := postgres.GetExecutor(ctx, r.pool)
	msg, err := scanMessage(executor.QueryRow(ctx, query, messageID))
	if err != nil {
		return nil, postgres.MapNotFound(err, "message", messageID, "get message")
	}
	return msg, nil
}

// ListLine returns the line ordered by sequence
func (r *PostgresMessageRepository) ListLine(ctx context.Context, line chat.LineRef) ([]chat.Message, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE conversation_id = $1 AND branch_id IS NOT DISTINCT FROM $2
		ORDER BY sequence ASC
	`, messageColumns, r.tables.Messages)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, line.ConversationID, line.BranchID)
	if err != nil {
		return nil, fmt.Errorf("list line: %w", err)
	}
	defer rows.Close()

	msgs := []chat.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, *msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return msgs, nil
}

// TruncateAfter deletes the line's messages after a sequence
func (r *PostgresMessageRepository) TruncateAfter(ctx context.Context, line chat.LineRef, after int) (int, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE conversation_id = $1 AND branch_id IS NOT DISTINCT FROM $2 AND sequence > $3
	`, r.tables.Messages)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, line.ConversationID, line.BranchID, after)
	if err != nil {
		return 0, fmt.Errorf("truncate line: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// UpdateContent rewrites a message's content
func (r *PostgresMessageRepository) UpdateContent(ctx context.Context, messageID, content string, editedAt time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET content = $1, edited_at = $2 WHERE id = $3`, r.tables.Messages)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, content, editedAt, messageID)
	if err != nil {
		return fmt.Errorf("update message content: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFound("message", messageID)
	}
	return nil
}

// UpdateReactions replaces the reaction set
func (r *PostgresMessageRepository) UpdateReactions(ctx context.Context, messageID string, reactions chat.ReactionSet) error {
	query := fmt.Sprintf(`UPDATE %s SET reactions = $1 WHERE id = $2`, r.tables.Messages)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, int16(reactions), messageID)
	if err != nil {
		return fmt.Errorf("update reactions: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFound("message", messageID)
	}
	return nil
}

// DeleteLine removes every message of the line
func (r *PostgresMessageRepository) DeleteLine(ctx context.Context, line chat.LineRef) (int, error) {
	return r.TruncateAfter(ctx, line, 0)
}
