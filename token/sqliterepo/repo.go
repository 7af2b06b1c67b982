package sqliterepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-client/token"
)

const createKVTable = `
CREATE TABLE IF NOT EXISTS client_storage (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

var _ token.Repo = (*Repo)(nil)

// Repo stores token values in a sqlite key/value table.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// New opens the database at path and prepares the table.
func New(ctx context.Context, path string) (*Repo, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	r := NewRepo(db)
	if err := r.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createKVTable); err != nil {
		return fmt.Errorf("create client_storage table: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM client_storage WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", token.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

func (r *Repo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO client_storage (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM client_storage WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (r *Repo) Close() error {
	return r.db.Close()
}
