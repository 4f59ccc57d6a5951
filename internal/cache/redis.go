package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces mirrored entries.
const DefaultKeyPrefix = "seamline:progress:"

// RedisMirror publishes cache entries to Redis so other processes (report
// builders, a second watcher) can read the latest read model without
// recomputing it.
type RedisMirror[V any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// mirrorRecord is the JSON form of an Entry. Errors travel as text.
type mirrorRecord[V any] struct {
	Value       *V        `json:"value,omitempty"`
	Error       string    `json:"error,omitempty"`
	TriggeredAt time.Time `json:"triggered_at"`
	StoredAt    time.Time `json:"stored_at"`
}

// NewRedisMirror connects to the Redis at url (redis://host:port/db).
// Mirrored keys expire after ttl; ttl <= 0 keeps them forever.
func NewRedisMirror[V any](url, prefix string, ttl time.Duration) (*RedisMirror[V], error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisMirrorFromClient[V](redis.NewClient(opt), prefix, ttl), nil
}

// NewRedisMirrorFromClient wraps an existing client.
func NewRedisMirrorFromClient[V any](client *redis.Client, prefix string, ttl time.Duration) *RedisMirror[V] {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisMirror[V]{client: client, prefix: prefix, ttl: ttl}
}

// Ping checks connectivity.
func (m *RedisMirror[V]) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// Publish writes an entry under key.
func (m *RedisMirror[V]) Publish(ctx context.Context, key string, e Entry[V]) error {
	rec := mirrorRecord[V]{TriggeredAt: e.TriggeredAt, StoredAt: e.StoredAt}
	if e.HasValue {
		v := e.Value
		rec.Value = &v
	}
	if e.Err != nil {
		rec.Error = e.Err.Error()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode mirror entry %s: %w", key, err)
	}
	ttl := m.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := m.client.Set(ctx, m.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("publish mirror entry %s: %w", key, err)
	}
	return nil
}

// Fetch reads an entry back. found is false when the key is absent or
// expired.
func (m *RedisMirror[V]) Fetch(ctx context.Context, key string) (e Entry[V], found bool, err error) {
	data, err := m.client.Get(ctx, m.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry[V]{}, false, nil
	}
	if err != nil {
		return Entry[V]{}, false, fmt.Errorf("fetch mirror entry %s: %w", key, err)
	}
	var rec mirrorRecord[V]
	if err := json.Unmarshal(data, &rec); err != nil {
		return Entry[V]{}, false, fmt.Errorf("decode mirror entry %s: %w", key, err)
	}
	e = Entry[V]{TriggeredAt: rec.TriggeredAt, StoredAt: rec.StoredAt}
	if rec.Value != nil {
		e.Value = *rec.Value
		e.HasValue = true
	}
	if rec.Error != "" {
		e.Err = errors.New(rec.Error)
	}
	return e, true, nil
}

// Close releases the client.
func (m *RedisMirror[V]) Close() error {
	return m.client.Close()
}
