package room

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pathway/internal/domain"
	"pathway/internal/domain/models/room"
	roomRepo "pathway/internal/domain/repositories/room"
	"pathway/internal/repository/postgres"
)

const roomColumns = `id, participant_ids, is_active, last_activity, created_at`

// PostgresRoomRepository implements RoomRepository using PostgreSQL.
// participant_ids is a text[] kept sorted so the set can be compared directly.
type PostgresRoomRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewRoomRepository creates a new PostgresRoomRepository
func NewRoomRepository(config *postgres.RepositoryConfig) roomRepo.RoomRepository {
	return &PostgresRoomRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanRoom(row pgx.Row) (*room.Room, error) {
	var rm room.Room
	if err := row.Scan(&rm.ID, &rm.ParticipantIDs, &rm.IsActive, &rm.LastActivity, &rm.CreatedAt); err != nil {
		return nil, err
	}
	return &rm, nil
}

func sortedParticipants(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return out
}

// CreateRoom inserts a room
func (r *PostgresRoomRepository) CreateRoom(ctx context.Context, rm *room.Room) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (participant_ids, is_active, last_activity, created_at)
		VALUES ($1, $2, $3, $3)
		RETURNING id, last_activity, created_at
	`, r.tables.Rooms)

	if rm.CreatedAt.IsZero() {
		rm.CreatedAt = time.Now().UTC()
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		sortedParticipants(rm.ParticipantIDs),
		rm.IsActive,
		rm.CreatedAt,
	).Scan(&rm.ID, &rm.LastActivity, &rm.CreatedAt)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      "room already exists for these participants",
				ResourceType: "room",
			}
		}
		return fmt.Errorf("create room: %w", err)
	}

	return nil
}

// GetRoom retrieves a room by ID
func (r *PostgresRoomRepository) GetRoom(ctx context.Context, roomID string) (*room.Room, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, roomColumns, r.tables.Rooms)

	executor := postgres.GetExecutor(ctx, r.pool)
	rm, err := scanRoom(executor.QueryRow(ctx, query, roomID))
	if err != nil {
		return nil, postgres.MapNotFound(err, "room", roomID, "get room")
	}
	return rm, nil
}

// FindRoomByParticipants finds the room with exactly this participant set
func (r *PostgresRoomRepository) FindRoomByParticipants(ctx context.Context, participantIDs []string) (*room.Room, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE participant_ids = $1`, roomColumns, r.tables.Rooms)

	executor := postgres.GetExecutor(ctx, r.pool)
	rm, err := scanRoom(executor.QueryRow(ctx, query, sortedParticipants(participantIDs)))
	if err != nil {
		return nil, postgres.MapNotFound(err, "room", "", "find room")
	}
	return rm, nil
}

// ListRoomsForParticipant returns the participant's rooms, most recent activity first
func (r *PostgresRoomRepository) ListRoomsForParticipant(ctx context.Context, participantID string) ([]room.Room, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE $1 = ANY(participant_ids)
		ORDER BY last_activity DESC
	`, roomColumns, r.tables.Rooms)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, participantID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	rooms := []room.Room{}
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, *rm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}

	return rooms, nil
}

// SetActive flips is_active
func (r *PostgresRoomRepository) SetActive(ctx context.Context, roomID string, active bool) error {
	query := fmt.Sprintf(`UPDATE %s SET is_active = $1 WHERE id = $2`, r.tables.Rooms)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, active, roomID)
	if err != nil {
		return fmt.Errorf("set room active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFound("room", roomID)
	}
	return nil
}

// TouchRoom sets last_activity
func (r *PostgresRoomRepository) TouchRoom(ctx context.Context, roomID string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET last_activity = $1 WHERE id = $2`, r.tables.Rooms)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, at, roomID)
	if err != nil {
		return fmt.Errorf("touch room: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFound("room", roomID)
	}
	return nil
}
