package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps entries in process memory
type MemoryBackend struct {
	data sync.Map
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Read retrieves an entry
func (m *MemoryBackend) Read(ctx context.Context, key string) (Entry, error) {
	select {
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	default:
	}

	value, ok := m.data.Load(key)
	if !ok {
		return Entry{}, ErrCacheMiss{Key: key}
	}

	entry := value.(Entry)
	data := make([]byte, len(entry.Data))
	copy(data, entry.Data)
	return Entry{Data: data, ModTime: entry.ModTime}, nil
}

// Write stores an entry
func (m *MemoryBackend) Write(ctx context.Context, key string, entry Entry) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data := make([]byte, len(entry.Data))
	copy(data, entry.Data)

	modTime := entry.ModTime
	if modTime.IsZero() {
		modTime = time.Now()
	}

	m.data.Store(key, Entry{Data: data, ModTime: modTime})
	return nil
}

// Delete removes an entry
func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.data.Delete(key)
	return nil
}

// Clear removes all entries
func (m *MemoryBackend) Clear(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.data.Range(func(key, value interface{}) bool {
		m.data.Delete(key)
		return true
	})
	return nil
}
