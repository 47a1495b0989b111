package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldData    = "data"
	fieldModTime = "mod_time"
)

// RedisBackend stores each entry as a hash holding the data and its
// modification time. Keys are written without a TTL.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Prefix is prepended to all cache keys
	Prefix string
}

// DefaultRedisConfig returns a default Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:   "localhost:6379",
		DB:     0,
		Prefix: "airtable:",
	}
}

// NewRedisBackend connects to Redis and verifies the connection
func NewRedisBackend(config RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewRedisBackendWithClient(client, config.Prefix), nil
}

// NewRedisBackendWithClient creates a backend over an existing client
func NewRedisBackendWithClient(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{
		client: client,
		prefix: prefix,
	}
}

// Read retrieves an entry
func (r *RedisBackend) Read(ctx context.Context, key string) (Entry, error) {
	values, err := r.client.HMGet(ctx, r.prefix+key, fieldData, fieldModTime).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, ErrCacheMiss{Key: key}
		}
		return Entry{}, err
	}

	data, ok := values[0].(string)
	if !ok {
		return Entry{}, ErrCacheMiss{Key: key}
	}
	raw, _ := values[1].(string)
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Entry{}, err
	}

	return Entry{Data: []byte(data), ModTime: time.Unix(0, nanos)}, nil
}

// Write stores an entry
func (r *RedisBackend) Write(ctx context.Context, key string, entry Entry) error {
	modTime := entry.ModTime
	if modTime.IsZero() {
		modTime = time.Now()
	}
	return r.client.HSet(ctx, r.prefix+key,
		fieldData, entry.Data,
		fieldModTime, strconv.FormatInt(modTime.UnixNano(), 10),
	).Err()
}

// Delete removes an entry
func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Clear removes every key under the backend's prefix
func (r *RedisBackend) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close closes the Redis connection
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
