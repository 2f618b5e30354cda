package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vietddude/launcher/internal/core/sentinel"
)

// ErrRecordNotFound is returned when a record key has never been written.
const ErrRecordNotFound = sentinel.Error("record not found")

// Well-known record keys.
const (
	KeyPreferences   = "preferences"
	KeyAuth          = "auth"
	KeyProfile       = "profile"
	KeyLibrary       = "library"
	KeyDownloadQueue = "downloads.queue"
)

// RecordRepository handles the local record store.
type RecordRepository interface {
	// Get retrieves the raw record for key. Returns ErrRecordNotFound
	// when the key has never been written.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes the raw record for key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// BatchDelete removes the given keys in one operation. Missing keys
	// are not an error.
	BatchDelete(ctx context.Context, keys ...string) error

	// Backup copies the underlying store artifact aside and returns the
	// copy's path. Backends without an on-disk artifact return "".
	Backup(ctx context.Context) (string, error)

	// Close releases the store.
	Close() error
}

// GetJSON loads the record for key and decodes it into T.
func GetJSON[T any](ctx context.Context, repo RecordRepository, key string) (T, error) {
	var out T
	raw, err := repo.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode record %q: %w", key, err)
	}
	return out, nil
}

// PutJSON encodes v and writes it under key.
func PutJSON(ctx context.Context, repo RecordRepository, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record %q: %w", key, err)
	}
	return repo.Put(ctx, key, raw)
}
