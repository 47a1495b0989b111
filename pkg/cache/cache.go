package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/airtable/internal/metrics"
)

// Identified is anything the cache can persist under its own id
type Identified interface {
	ID() (string, bool)
	Payload() map[string]any
}

// Cache layers JSON (de)serialization and TTL checks over a Backend. Every
// failure degrades to a miss or a skipped write; nothing is returned to the
// caller as an error.
type Cache struct {
	backend Backend
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Cache
type Option func(*Cache)

// WithLogger sets the logger used for degraded reads and writes
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Cache over backend
func New(backend Backend, opts ...Option) *Cache {
	c := &Cache{
		backend: backend,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the underlying backend
func (c *Cache) Backend() Backend {
	return c.backend
}

// read returns the raw entry for key when it is younger than expireAfter at
// now. Stale entries are left in place.
func (c *Cache) read(ctx context.Context, key string, expireAfter time.Duration, now time.Time) ([]byte, bool) {
	entry, err := c.backend.Read(ctx, key)
	if err != nil {
		if !IsCacheMiss(err) {
			c.logger.Debug("cache read failed", zap.String("key", key), zap.Error(err))
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	if now.Sub(entry.ModTime) >= expireAfter {
		metrics.CacheLookups.WithLabelValues("expired").Inc()
		return nil, false
	}
	return entry.Data, true
}

// Load returns the payload stored under key if it has not expired
func (c *Cache) Load(ctx context.Context, key string, expireAfter time.Duration) (map[string]any, bool) {
	return c.load(ctx, key, expireAfter, c.now())
}

func (c *Cache) load(ctx context.Context, key string, expireAfter time.Duration, now time.Time) (map[string]any, bool) {
	data, ok := c.read(ctx, key, expireAfter, now)
	if !ok {
		return nil, false
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil || payload == nil {
		c.logger.Debug("cache entry is not an object", zap.String("key", key), zap.Error(err))
		metrics.CacheLookups.WithLabelValues("corrupt").Inc()
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return payload, true
}

// LoadIDs returns the id list stored under key if it has not expired
func (c *Cache) LoadIDs(ctx context.Context, key string, expireAfter time.Duration) ([]string, bool) {
	return c.loadIDs(ctx, key, expireAfter, c.now())
}

func (c *Cache) loadIDs(ctx context.Context, key string, expireAfter time.Duration, now time.Time) ([]string, bool) {
	data, ok := c.read(ctx, key, expireAfter, now)
	if !ok {
		return nil, false
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil || ids == nil {
		c.logger.Debug("cache entry is not an id list", zap.String("key", key), zap.Error(err))
		metrics.CacheLookups.WithLabelValues("corrupt").Inc()
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return ids, true
}

// Member is one entry of a list index. Payload is nil when the member is
// not resident in the cache.
type Member struct {
	ID      string
	Payload map[string]any
}

// LoadIndex reads the id list under key and every member it names, judging
// all of them against a single instant. It reports false when the list is
// absent, expired, or empty.
func (c *Cache) LoadIndex(ctx context.Context, key string, expireAfter time.Duration) ([]Member, bool) {
	now := c.now()
	ids, ok := c.loadIDs(ctx, key, expireAfter, now)
	if !ok || len(ids) == 0 {
		return nil, false
	}

	members := make([]Member, len(ids))
	for i, id := range ids {
		payload, _ := c.load(ctx, id, expireAfter, now)
		members[i] = Member{ID: id, Payload: payload}
	}
	return members, true
}

// SaveRecord stores r's payload under its id. Records without an id are
// skipped.
func (c *Cache) SaveRecord(ctx context.Context, r Identified) {
	id, ok := r.ID()
	if !ok {
		metrics.CacheWrites.WithLabelValues("skipped").Inc()
		return
	}
	c.write(ctx, id, r.Payload(), c.now())
}

// SaveIDs stores an ordered id list under key. The list is only written
// when every id already has an entry, and it is stamped with the oldest
// member's modification time so it can never outlive one of its members.
func (c *Cache) SaveIDs(ctx context.Context, key string, ids []string) {
	modTime := c.now()
	for _, id := range ids {
		entry, err := c.backend.Read(ctx, id)
		if err != nil {
			c.logger.Debug("list index skipped, member not cached",
				zap.String("key", key), zap.String("id", id), zap.Error(err))
			metrics.CacheWrites.WithLabelValues("skipped").Inc()
			return
		}
		if entry.ModTime.Before(modTime) {
			modTime = entry.ModTime
		}
	}
	if ids == nil {
		ids = []string{}
	}
	c.write(ctx, key, ids, modTime)
}

func (c *Cache) write(ctx context.Context, key string, value any, modTime time.Time) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Debug("cache entry not serializable", zap.String("key", key), zap.Error(err))
		metrics.CacheWrites.WithLabelValues("failed").Inc()
		return
	}

	if err := c.backend.Write(ctx, key, Entry{Data: data, ModTime: modTime}); err != nil {
		c.logger.Debug("cache write failed", zap.String("key", key), zap.Error(err))
		metrics.CacheWrites.WithLabelValues("failed").Inc()
		return
	}
	metrics.CacheWrites.WithLabelValues("ok").Inc()
}

// Clear removes every entry from the backend
func (c *Cache) Clear(ctx context.Context) error {
	return c.backend.Clear(ctx)
}
