// Package cache stores fetched ActivityPub documents by IRI.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// A Cache maps keys to byte slices for a limited time.
type Cache interface {
	// Get returns the value stored under key. ok is false if there is none.
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	// Set stores val under key.
	Set(ctx context.Context, key string, val []byte) error
}

const keyPrefix = "asap:doc:"

// Redis is a Cache backed by a Redis server, shared between processes.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis returns a Cache for the Redis server at url, for example
// redis://localhost:6379/0. Entries expire after ttl.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, val []byte) error {
	return r.client.Set(ctx, keyPrefix+key, val, r.ttl).Err()
}

// Close closes the connection to the server.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Memory is an in process Cache. Expired entries are dropped when they are
// next read, and swept from the whole cache at most once per ttl by Set.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	entries   map[string]entry
	nextSweep time.Time
}

type entry struct {
	val     []byte
	expires time.Time
}

// NewMemory returns an empty Memory cache whose entries expire after ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.val, true, nil
}

func (m *Memory) Set(_ context.Context, key string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if !now.Before(m.nextSweep) {
		m.sweep(now)
	}
	m.entries[key] = entry{
		val:     append([]byte(nil), val...),
		expires: now.Add(m.ttl),
	}
	return nil
}

// sweep drops every entry which has expired at now. m.mu must be held.
func (m *Memory) sweep(now time.Time) {
	for key, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, key)
		}
	}
	m.nextSweep = now.Add(m.ttl)
}

// Nop is a Cache that stores nothing.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Nop) Set(context.Context, string, []byte) error { return nil }
