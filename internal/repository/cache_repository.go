package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
)

// DefaultCacheNamespace prefixes page cache keys so they never collide with drafts.
const DefaultCacheNamespace = "council:cache:"

const purgeScanCount = 200

// CacheRepository stores rendered public pages as JSON in Redis.
type CacheRepository struct {
	client    *redis.Client
	namespace string
}

// NewCacheRepository constructs the repository. A nil client turns every read
// into a miss and every write into a no-op.
func NewCacheRepository(client *redis.Client, namespace string) *CacheRepository {
	if namespace == "" {
		namespace = DefaultCacheNamespace
	}
	if !strings.HasSuffix(namespace, ":") {
		namespace += ":"
	}
	return &CacheRepository{client: client, namespace: namespace}
}

func (r *CacheRepository) key(k string) string {
	return r.namespace + k
}

// Get decodes the page stored under key into dest.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return appErrors.ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("read cached page %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode cached page %s: %w", key, err)
	}
	return nil
}

// Set encodes value and stores it for ttl.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode page %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.key(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache page %s: %w", key, err)
	}
	return nil
}

// Purge unlinks every key matching one of the glob patterns. Patterns without
// glob characters are removed directly without a scan.
func (r *CacheRepository) Purge(ctx context.Context, patterns ...string) (int, error) {
	if r.client == nil || len(patterns) == 0 {
		return 0, nil
	}
	seen := make(map[string]struct{})
	keys := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		full := r.key(pattern)
		if !strings.ContainsAny(pattern, "*?[") {
			if _, dup := seen[full]; !dup {
				seen[full] = struct{}{}
				keys = append(keys, full)
			}
			continue
		}
		iter := r.client.Scan(ctx, 0, full, purgeScanCount).Iterator()
		for iter.Next(ctx) {
			if _, dup := seen[iter.Val()]; dup {
				continue
			}
			seen[iter.Val()] = struct{}{}
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return 0, fmt.Errorf("scan cached pages %s: %w", pattern, err)
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}
	removed, err := r.client.Unlink(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("unlink cached pages: %w", err)
	}
	return int(removed), nil
}
