package room

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pathway/internal/domain/models/room"
	roomRepo "pathway/internal/domain/repositories/room"
	"pathway/internal/repository/postgres"
)

const messageColumns = `id, room_id, sender_id, content, is_read, read_at, created_at`

// PostgresMessageRepository implements the room message log using PostgreSQL
type PostgresMessageRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewMessageRepository creates a new PostgresMessageRepository
func NewMessageRepository(config *postgres.RepositoryConfig) roomRepo.MessageRepository {
	return &PostgresMessageRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanMessage(row pgx.Row) (*room.Message, error) {
	var m room.Message
	if err := row.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.IsRead, &m.ReadAt, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// LockRoom takes a transaction-scoped advisory lock on the room
func (r *PostgresMessageRepository) LockRoom(ctx context.Context, roomID string) error {
	return postgres.LockKey(ctx, r.pool, "room:"+roomID)
}

// LastMessageTime returns created_at of the newest message
func (r *PostgresMessageRepository) LastMessageTime(ctx context.Context, roomID string) (*time.Time, error) {
	query := fmt.Sprintf(`SELECT MAX(created_at) FROM %s WHERE room_id = $1`, r.tables.RoomMessages)

	var last *time.Time
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, roomID).Scan(&last); err != nil {
		return nil, fmt.Errorf("last message time: %w", err)
	}
	return last, nil
}

// CreateMessage appends to the log
func (r *PostgresMessageRepository) CreateMessage(ctx context.Context, msg *room.Message) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (room_id, sender_id, content, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, r.tables.RoomMessages)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		msg.RoomID,
		msg.SenderID,
		msg.Content,
		msg.IsRead,
		msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("create room message: %w", err)
	}
	return nil
}

// ListMessages returns one page oldest first plus the total
func (r *PostgresMessageRepository) ListMessages(ctx context.Context, roomID string, offset, limit int) ([]room.Message, int, error) {
	executor := postgres.GetExecutor(ctx, r.pool)

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE room_id = $1`, r.tables.RoomMessages)
	var total int
	if err := executor.QueryRow(ctx, countQuery, roomID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count room messages: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE room_id = $1
		ORDER BY created_at ASC, id ASC
		OFFSET $2 LIMIT $3
	`, messageColumns, r.tables.RoomMessages)

	rows, err := executor.Query(ctx, query, roomID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list room messages: %w", err)
	}
	defer rows.Close()

	msgs := []room.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan room message: %w", err)
		}
		msgs = append(msgs, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate room messages: %w", err)
	}

	return msgs, total, nil
}

// LastMessage returns the newest message, nil when the room is empty
func (r *PostgresMessageRepository) LastMessage(ctx context.Context, roomID string) (*room.Message, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE room_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, messageColumns, r.tables.RoomMessages)

	executor := postgres.GetExecutor(ctx, r.pool)
	m, err := scanMessage(executor.QueryRow(ctx, query, roomID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("last room message: %w", err)
	}
	return m, nil
}

// CountUnread counts messages addressed to participantID that are unread
func (r *PostgresMessageRepository) CountUnread(ctx context.Context, roomID, participantID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s
		WHERE room_id = $1 AND sender_id <> $2 AND NOT is_read
	`, r.tables.RoomMessages)

	var n int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, roomID, participantID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkRead flips every unread message not sent by readerID in one statement
func (r *PostgresMessageRepository) MarkRead(ctx context.Context, roomID, readerID string, at time.Time) (int, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_read = true, read_at = $3
		WHERE room_id = $1 AND sender_id <> $2 AND NOT is_read
	`, r.tables.RoomMessages)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, roomID, readerID, at)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return int(result.RowsAffected()), nil
}
