// Package cache persists record payloads and list indices with a per-type
// time-to-live judged on read
package cache

import (
	"context"
	"time"
)

// Entry is a stored value together with the time it was last written
type Entry struct {
	Data    []byte
	ModTime time.Time
}

// Backend stores raw entries. Implementations never expire entries themselves.
type Backend interface {
	// Read returns the entry for key, or ErrCacheMiss
	Read(ctx context.Context, key string) (Entry, error)

	// Write stores the entry for key, replacing any previous entry
	Write(ctx context.Context, key string, entry Entry) error

	// Delete removes the entry for key
	Delete(ctx context.Context, key string) error

	// Clear removes every entry
	Clear(ctx context.Context) error
}

// ErrCacheMiss is returned when a key is not found in the backend
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	_, ok := err.(ErrCacheMiss)
	return ok
}
