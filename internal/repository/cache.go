package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"asset-dedup/internal/model"
)

const (
	listCacheSet = "asset_list_keys"
	listCacheTTL = 10 * time.Minute
)

// listCache keeps prefix listings in Redis. A nil client disables it.
type listCache struct {
	client *redis.Client
	logger *zap.Logger
}

func newListCache(client *redis.Client, logger *zap.Logger) *listCache {
	return &listCache{client: client, logger: logger}
}

func listCacheKey(prefix string) string {
	return "asset_list:" + prefix
}

// get reports a hit only when the entry exists and decodes.
func (c *listCache) get(ctx context.Context, prefix string) ([]*model.Asset, bool) {
	if c.client == nil {
		return nil, false
	}
	val, err := c.client.Get(ctx, listCacheKey(prefix)).Bytes()
	if err != nil {
		return nil, false
	}
	var assets []*model.Asset
	if err := json.Unmarshal(val, &assets); err != nil {
		c.logger.Warn("asset list cache entry unreadable", zap.String("prefix", prefix), zap.Error(err))
		return nil, false
	}
	for _, a := range assets {
		hydrate(a)
	}
	return assets, true
}

func (c *listCache) put(ctx context.Context, prefix string, assets []*model.Asset) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(assets)
	if err != nil {
		return
	}
	key := listCacheKey(prefix)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, data, listCacheTTL)
	pipe.SAdd(ctx, listCacheSet, key)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("asset list cache write failed", zap.String("prefix", prefix), zap.Error(err))
	}
}

// invalidate drops every cached prefix listing.
func (c *listCache) invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	keys, err := c.client.SMembers(ctx, listCacheSet).Result()
	if err != nil {
		c.logger.Warn("asset list cache invalidation failed", zap.Error(err))
		return
	}
	if err := c.client.Del(ctx, append(keys, listCacheSet)...).Err(); err != nil {
		c.logger.Warn("asset list cache invalidation failed", zap.Error(err))
	}
}
