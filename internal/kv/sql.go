package kv

import (
	"context"
	"database/sql"
	"errors"

	"github.com/JustinTDCT/CineLog/internal/db"
)

// SQLStore keeps values in the kv_store table (Postgres or SQLite).
type SQLStore struct {
	db *db.DB
}

func NewSQLStore(database *db.DB) *SQLStore {
	return &SQLStore{db: database}
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.db.Rebind("SELECT value FROM kv_store WHERE key=?"), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value=excluded.value, updated_at=CURRENT_TIMESTAMP`),
		key, string(value))
	return err
}

// Close is a no-op; the database handle is owned by the caller.
func (s *SQLStore) Close() error {
	return nil
}
