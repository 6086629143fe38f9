package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis keeps each collection under a single prefixed key.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps an existing client. The prefix namespaces one
// classroom's collections.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "conductledger"
	}
	return &Redis{client: client, prefix: prefix}
}

// Get returns the collection payload, or nil when the key is absent.
func (s *Redis) Get(ctx context.Context, collection string) ([]byte, error) {
	raw, err := s.client.Get(ctx, s.key(collection)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", collection, err)
	}
	return raw, nil
}

// Set replaces the collection payload. Collections never expire.
func (s *Redis) Set(ctx context.Context, collection string, payload []byte) error {
	if err := s.client.Set(ctx, s.key(collection), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", collection, err)
	}
	return nil
}

func (s *Redis) key(collection string) string {
	return s.prefix + ":" + collection
}
