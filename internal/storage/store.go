package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/terraincognita07/paindiary/internal/db"
)

// Store is the raw key/value host. *db.KeyValueRepository is the persistent
// implementation; MemoryStore backs tests and throwaway sessions.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	PutMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
	EntrySize(ctx context.Context, key string) (int64, error)
	TotalSize(ctx context.Context) (int64, error)
}

var _ Store = (*db.KeyValueRepository)(nil)

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

func (store *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	value, ok := store.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (store *MemoryStore) PutMany(_ context.Context, values map[string][]byte) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	for key, value := range values {
		store.entries[key] = append([]byte(nil), value...)
	}
	return nil
}

func (store *MemoryStore) Delete(_ context.Context, keys ...string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, key := range keys {
		delete(store.entries, key)
	}
	return nil
}

func (store *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	_, ok := store.entries[key]
	return ok, nil
}

func (store *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	keys := make([]string, 0, len(store.entries))
	for key := range store.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (store *MemoryStore) EntrySize(_ context.Context, key string) (int64, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	value, ok := store.entries[key]
	if !ok {
		return 0, nil
	}
	return db.EntrySize(key, value), nil
}

func (store *MemoryStore) TotalSize(_ context.Context) (int64, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	var total int64
	for key, value := range store.entries {
		total += db.EntrySize(key, value)
	}
	return total, nil
}
