package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jsonstash/jsonstash/internal/document"
	"github.com/redis/go-redis/v9"
)

// RedisMirror copies stored documents into Redis so other processes can
// read them without touching the store directory.
// Documents are stored as JSON under key "<prefix><key>" with no TTL.
type RedisMirror struct {
	client *redis.Client
	prefix string
}

// NewRedisMirror creates a Redis mirror. An empty prefix means "doc:".
func NewRedisMirror(client *redis.Client, prefix string) *RedisMirror {
	if prefix == "" {
		prefix = "doc:"
	}
	return &RedisMirror{client: client, prefix: prefix}
}

func (r *RedisMirror) Name() string { return "redis" }

func (r *RedisMirror) key(k string) string {
	return r.prefix + k
}

func (r *RedisMirror) Put(ctx context.Context, e *document.Entry) error {
	return r.client.Set(ctx, r.key(e.Key), e.Body, 0).Err()
}

func (r *RedisMirror) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

// Get reads a mirrored document back.
func (r *RedisMirror) Get(ctx context.Context, key string) (document.Document, error) {
	b, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", document.ErrNotFound, key)
		}
		return nil, err
	}
	return document.Decode(b)
}
