package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/pizzeria-api/internal/common"
	"github.com/noah-isme/pizzeria-api/internal/obs"
)

// Cache wraps Redis helpers for JSON payloads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client or non-positive ttl disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if !c.enabled() || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if !c.enabled() || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// CachedLookup serves snapshots from Redis for a short TTL before falling back
// to Next. Use it for previews and cart views; checkout reads Next directly.
type CachedLookup struct {
	Next  Lookup
	Cache *Cache
}

// Snapshot implements Lookup.
func (l CachedLookup) Snapshot(ctx context.Context, refs Refs) (*Snapshot, error) {
	if l.Next == nil {
		return nil, errors.New("catalog: lookup not configured")
	}
	if !l.Cache.enabled() {
		return l.Next.Snapshot(ctx, refs)
	}
	key := snapshotCacheKey(refs)
	var cached Snapshot
	if ok, err := l.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		obs.ObserveCatalogCache("hit")
		return &cached, nil
	}
	obs.ObserveCatalogCache("miss")
	snap, err := l.Next.Snapshot(ctx, refs)
	if err != nil {
		return nil, err
	}
	_ = l.Cache.SetJSON(ctx, key, snap)
	return snap, nil
}

func snapshotCacheKey(refs Refs) string {
	return "catalog:snapshot:" + common.Sha256Hex(refs.Key())
}
