package memory

import (
	"context"
	"sync"

	"github.com/vietddude/launcher/internal/infra/storage"
)

// MemoryStorage is an in-memory record store used by tests and by
// diskless runs.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: make(map[string][]byte)}
}

var _ storage.RecordRepository = (*MemoryStorage)(nil)

func (m *MemoryStorage) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.records[key]
	if !ok {
		return nil, storage.ErrRecordNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *MemoryStorage) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.records[key] = stored
	return nil
}

func (m *MemoryStorage) BatchDelete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.records, key)
	}
	return nil
}

// Backup has no artifact to copy for the in-memory store.
func (m *MemoryStorage) Backup(ctx context.Context) (string, error) {
	return "", nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

// Len reports the number of stored records.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
