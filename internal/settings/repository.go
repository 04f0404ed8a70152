package settings

import (
	"database/sql"
	"errors"

	"github.com/JustinTDCT/CineLog/internal/db"
)

type Repository struct {
	db *db.DB
}

func NewRepository(d *db.DB) *Repository {
	return &Repository{db: d}
}

// Get returns the stored value and whether the key exists.
func (r *Repository) Get(key string) (string, bool, error) {
	var val string
	err := r.db.QueryRow(r.db.Rebind("SELECT value FROM settings WHERE key=?"), key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	return val, err == nil, err
}

func (r *Repository) Set(key, value string) error {
	_, err := r.db.Exec(r.db.Rebind(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value=excluded.value, updated_at=CURRENT_TIMESTAMP`),
		key, value)
	return err
}

func (r *Repository) GetAll() ([]Setting, error) {
	rows, err := r.db.Query("SELECT key, value FROM settings ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) Delete(key string) error {
	_, err := r.db.Exec(r.db.Rebind("DELETE FROM settings WHERE key=?"), key)
	return err
}
