package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/blogpost/blogpost/internal/model"
)

// Cache key prefixes and TTLs.
const (
	postKeyPrefix     = "post:"
	negCacheKeySuffix = ":neg"

	// DefaultPostTTL is the TTL for cached post data.
	DefaultPostTTL = 10 * time.Minute

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = 30 * time.Second

	// TombstoneTTL is how long a deleted id stays negatively cached.
	// Deleted ids are never reused, so it only has to outlast in-flight reads
	// and the post TTL.
	TombstoneTTL = 24 * time.Hour
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// PostKey returns the Redis key holding the post with id.
func PostKey(id string) string {
	return postKeyPrefix + id
}

// GetPost retrieves a post from cache by ID.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetPost(ctx context.Context, id string) (*model.Post, error) {
	var cached model.CachedPost

	cmd := c.client.HGetAll(ctx, PostKey(id))
	result, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrCacheMiss
	}

	if err := cmd.Scan(&cached); err != nil {
		return nil, fmt.Errorf("failed to decode cached post: %w", err)
	}

	return cached.ToPost(id), nil
}

// storePost writes the post hash unless the id is tombstoned (KEYS[2])
// or the cached copy has a newer updated_at. updated_at values are
// decimal nanosecond strings, compared by length then lexically since
// Lua numbers lose precision at that size.
// Returns 1 when written.
var storePost = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
  return 0
end
local cur = redis.call('HGET', KEYS[1], 'updated_at')
local new = ARGV[1]
if cur and (#cur > #new or (#cur == #new and cur > new)) then
  return 0
end
redis.call('HSET', KEYS[1],
  'author_first_name', ARGV[2],
  'author_last_name', ARGV[3],
  'title', ARGV[4],
  'content', ARGV[5],
  'created_at', ARGV[6],
  'updated_at', new)
redis.call('PEXPIRE', KEYS[1], ARGV[7])
return 1
`)

// SetPost caches post. A deleted id or an older copy than the one
// already cached is silently skipped.
func (c *Cache) SetPost(ctx context.Context, post *model.Post) error {
	key := PostKey(post.ID)
	cached := post.ToCachedPost()

	err := storePost.Run(ctx, c.client,
		[]string{key, key + negCacheKeySuffix},
		cached.UpdatedAt,
		cached.AuthorFirstName,
		cached.AuthorLastName,
		cached.Title,
		cached.Content,
		cached.CreatedAt,
		c.ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to cache post: %w", err)
	}

	return nil
}

// DeletePost drops the cached copy of a post. Tombstones are kept.
func (c *Cache) DeletePost(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, PostKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete post from cache: %w", err)
	}

	return nil
}

// MarkDeleted drops the cached copy and tombstones id for TombstoneTTL,
// so no in-flight read can cache the post again.
func (c *Cache) MarkDeleted(ctx context.Context, id string) error {
	key := PostKey(id)

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SetEx(ctx, key+negCacheKeySuffix, "", TombstoneTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to tombstone post: %w", err)
	}

	return nil
}

// IsNegativelyCached checks if an ID is in negative cache.
func (c *Cache) IsNegativelyCached(ctx context.Context, id string) (bool, error) {
	exists, err := c.client.Exists(ctx, PostKey(id)+negCacheKeySuffix).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetNegativeCache marks an ID as not found. An existing tombstone keeps
// its longer TTL.
func (c *Cache) SetNegativeCache(ctx context.Context, id string) error {
	err := c.client.SetNX(ctx, PostKey(id)+negCacheKeySuffix, "", NegativeCacheTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}
