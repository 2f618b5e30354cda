package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vietddude/launcher/internal/infra/storage"
)

// RecordRepo implements storage.RecordRepository using sqlite.
type RecordRepo struct {
	db *DB
}

// NewRecordRepo creates a new sqlite record repository.
func NewRecordRepo(db *DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// Get retrieves the raw record for key.
func (r *RecordRepo) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.GetContext(ctx, &value, `SELECT value FROM records WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %q: %w", key, err)
	}
	return value, nil
}

// Put writes the record for key, replacing any previous value.
func (r *RecordRepo) Put(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO records (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to put record %q: %w", key, err)
	}
	return nil
}

// BatchDelete removes the given keys in one statement.
func (r *RecordRepo) BatchDelete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`DELETE FROM records WHERE key IN (?)`, keys)
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}
	return nil
}

// Backup copies the database file aside.
func (r *RecordRepo) Backup(ctx context.Context) (string, error) {
	return r.db.Backup(ctx)
}

// Close closes the underlying database.
func (r *RecordRepo) Close() error {
	return r.db.Close()
}
