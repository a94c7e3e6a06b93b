// Package redis provides a session persister on a redis hash, for sessions
// shared between machines or containers.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/zjrosen/taskdeck/internal/kv"
	"github.com/zjrosen/taskdeck/internal/log"
)

// DefaultPrefix is used when no key prefix is configured.
const DefaultPrefix = "taskdeck"

// Persister implements kv.Persister on the hash "<prefix>:session".
type Persister struct {
	client *redis.Client
	key    string
}

var (
	_ kv.Persister   = (*Persister)(nil)
	_ kv.BatchSetter = (*Persister)(nil)
)

// NewPersister wraps an existing client.
func NewPersister(client *redis.Client, prefix string) *Persister {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Persister{client: client, key: prefix + ":session"}
}

// Dial connects to addr and verifies the server responds.
func Dial(ctx context.Context, addr, prefix string) (*Persister, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	log.Info(log.CatStore, "connected to redis", "addr", addr)
	return NewPersister(client, prefix), nil
}

// Key returns the hash key holding the session.
func (p *Persister) Key() string {
	return p.key
}

func (p *Persister) Get(ctx context.Context, field string) (string, bool, error) {
	v, err := p.client.HGet(ctx, p.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", field, err)
	}
	return v, true, nil
}

func (p *Persister) Set(ctx context.Context, field, value string) error {
	if err := p.client.HSet(ctx, p.key, field, value).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", field, err)
	}
	return nil
}

// SetMany writes all fields with one HSET, which redis applies atomically.
func (p *Persister) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]any, 0, len(values)*2)
	for k, v := range values {
		args = append(args, k, v)
	}
	if err := p.client.HSet(ctx, p.key, args...).Err(); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	log.Debug(log.CatStore, "persisted session keys", "backend", "redis", "count", len(values))
	return nil
}

// Clear deletes the whole hash.
func (p *Persister) Clear(ctx context.Context) error {
	if err := p.client.Del(ctx, p.key).Err(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	log.Debug(log.CatStore, "cleared session", "backend", "redis")
	return nil
}

// Close closes the underlying client.
func (p *Persister) Close() error {
	return p.client.Close()
}
