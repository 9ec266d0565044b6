package blocklist

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the table used by PostgresStore.
const Schema = `
	CREATE TABLE IF NOT EXISTS blocked_devices (
		position  INTEGER NOT NULL,
		device_id TEXT    NOT NULL
	);
	CREATE INDEX IF NOT EXISTS blocked_devices_device_id_idx ON blocked_devices (device_id);
`

// PostgresStore is a PostgreSQL implementation of Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL block-list store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the blocked_devices table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("blocklist/postgres: migrate: %w", err)
	}
	return nil
}

// IsBlocked checks whether any row carries id.
func (s *PostgresStore) IsBlocked(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM blocked_devices WHERE device_id = $1)`

	var blocked bool
	if err := s.pool.QueryRow(ctx, query, id).Scan(&blocked); err != nil {
		return false, fmt.Errorf("blocklist/postgres: is blocked: %w", err)
	}
	return blocked, nil
}

// Replace deletes every row and copies the new list in, inside one transaction.
// Concurrent replacements are serialized, so the table always holds exactly one list.
func (s *PostgresStore) Replace(ctx context.Context, ids []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("blocklist/postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Writers queue behind each other; readers are not blocked by this mode.
	if _, err := tx.Exec(ctx, `LOCK TABLE blocked_devices IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("blocklist/postgres: lock: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM blocked_devices`); err != nil {
		return fmt.Errorf("blocklist/postgres: clear: %w", err)
	}

	rows := make([][]any, len(ids))
	for i, id := range ids {
		rows[i] = []any{i, id}
	}
	if len(rows) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"blocked_devices"},
			[]string{"position", "device_id"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("blocklist/postgres: copy: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("blocklist/postgres: commit: %w", err)
	}
	return nil
}

// List returns the rows ordered by position.
func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	query := `SELECT device_id FROM blocked_devices ORDER BY position`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("blocklist/postgres: list: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("blocklist/postgres: list: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
