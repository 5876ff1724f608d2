package infrastructure

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yourusername/media-fetch-go/internal/domain"
)

const cacheKeyPrefix = "mediafetch:asset:"

// RedisAssetCache implements AssetCache on Redis.
// Assets are stored as JSON with a fixed TTL.
type RedisAssetCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisAssetCache connects to Redis and verifies the connection
func NewRedisAssetCache(ctx context.Context, config *domain.CacheConfig) (*RedisAssetCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Address, err)
	}
	return &RedisAssetCache{client: client, ttl: config.TTL}, nil
}

// CacheKey derives the cache key of a request.
// Requests with different credentials are cached separately.
func CacheKey(rawURL string, creds *domain.Credentials) string {
	h := sha256.New()
	h.Write([]byte(rawURL))
	h.Write([]byte{'|'})
	if creds != nil {
		if data, err := json.Marshal(creds); err == nil {
			h.Write(data)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a cached asset
func (c *RedisAssetCache) Get(ctx context.Context, key string) (*domain.RetrievedAsset, bool, error) {
	data, err := c.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}

	var asset domain.RetrievedAsset
	if err := json.Unmarshal(data, &asset); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached asset: %w", err)
	}
	return &asset, true, nil
}

// Set stores an asset. Binary files are never cached.
func (c *RedisAssetCache) Set(ctx context.Context, key string, asset *domain.RetrievedAsset) error {
	if asset == nil || asset.Kind == domain.KindBinaryFile {
		return nil
	}

	data, err := json.Marshal(asset)
	if err != nil {
		return fmt.Errorf("failed to encode asset: %w", err)
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Ping checks the connection
func (c *RedisAssetCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the connection
func (c *RedisAssetCache) Close() error {
	return c.client.Close()
}
