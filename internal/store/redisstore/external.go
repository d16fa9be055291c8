package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rohmanhakim/webstory-importer/internal/external"
)

// Client is the part of *redis.Client the repository uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

var _ Client = (*redis.Client)(nil)

var _ external.Repository = (*ExternalStoryRepository)(nil)

// ExternalStoryRepository keeps external story entries as JSON values so
// several processes can share one cache.
type ExternalStoryRepository struct {
	client Client
	prefix string
	ttl    time.Duration // 0 keeps entries until evicted
}

func NewExternalStoryRepository(client Client, prefix string, ttl time.Duration) *ExternalStoryRepository {
	return &ExternalStoryRepository{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// NewClient connects using a redis:// URL.
func NewClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (r *ExternalStoryRepository) key(urlHash string) string {
	return r.prefix + "external:" + urlHash
}

func (r *ExternalStoryRepository) Get(ctx context.Context, urlHash string) (external.ExternalStory, bool, error) {
	raw, err := r.client.Get(ctx, r.key(urlHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return external.ExternalStory{}, false, nil
	}
	if err != nil {
		return external.ExternalStory{}, false, fmt.Errorf("redis get %s: %w", urlHash, err)
	}

	var entry external.ExternalStory
	if err := json.Unmarshal(raw, &entry); err != nil {
		return external.ExternalStory{}, false, fmt.Errorf("decode external story %s: %w", urlHash, err)
	}
	return entry, true, nil
}

func (r *ExternalStoryRepository) Put(ctx context.Context, entry external.ExternalStory) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode external story %s: %w", entry.URLHash, err)
	}
	if err := r.client.Set(ctx, r.key(entry.URLHash), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", entry.URLHash, err)
	}
	return nil
}
