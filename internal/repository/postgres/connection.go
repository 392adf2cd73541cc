package postgres

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pathway/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Conversations string
	Messages      string
	Branches      string
	Rooms         string
	RoomMessages  string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Conversations: fmt.Sprintf("%sconversations", prefix),
		Messages:      fmt.Sprintf("%smessages", prefix),
		Branches:      fmt.Sprintf("%sconversation_branches", prefix),
		Rooms:         fmt.Sprintf("%srooms", prefix),
		RoomMessages:  fmt.Sprintf("%sroom_messages", prefix),
	}
}

// CreateConnectionPool creates a new pgx connection pool.
//
// Port 6543 (transaction pooler) does not support prepared statements, so the
// pool switches to QueryExecModeCacheDescribe there unless the connection
// string already chose a mode via default_query_exec_mode.
//
// Table prefixes are interpolated with fmt.Sprintf before the SQL reaches
// the server; each environment therefore gets its own statements.
func CreateConnectionPool(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = maxConns
	config.MinConns = minConns

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the transaction stored in ctx, or the pool when there
// is none, so repositories join an ongoing transaction automatically.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}

// AdvisoryKey maps a lock name (line or room key) to a pg_advisory lock id
func AdvisoryKey(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64())
}

// LockKey takes a transaction-scoped advisory lock. Outside a transaction
// it is an error: the lock would be released before the caller's writes.
func LockKey(ctx context.Context, pool *pgxpool.Pool, name string) error {
	if !repositories.InTx(ctx) {
		return fmt.Errorf("advisory lock %q requires a transaction", name)
	}
	_, err := GetExecutor(ctx, pool).Exec(ctx, "SELECT pg_advisory_xact_lock($1)", AdvisoryKey(name))
	if err != nil {
		return fmt.Errorf("advisory lock %q: %w", name, err)
	}
	return nil
}
