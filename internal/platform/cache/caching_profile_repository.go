// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"helioscope/internal/feature/irradiance/domain/entity"
	"helioscope/internal/feature/irradiance/usecase"
)

// CachingProfileRepository decorates a ProfileRepository with Redis caching.
// It implements the decorator pattern, transparently adding caching without
// modifying the underlying repository. Lookup failures (including unsupported
// locations) are never cached.
type CachingProfileRepository struct {
	inner     usecase.ProfileRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// CachingProfileRepositoryがProfileRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.ProfileRepository = (*CachingProfileRepository)(nil)

// NewCachingProfileRepository decorates a ProfileRepository with Redis caching.
// If ttl is 0, it defaults to 24 hours. If namespace is empty, it uses "irradiance".
func NewCachingProfileRepository(rdb *redis.Client, ttl time.Duration, inner usecase.ProfileRepository, namespace string) *CachingProfileRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if namespace == "" {
		namespace = "irradiance"
	}
	return &CachingProfileRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// Resolve retrieves a profile, checking cache first then falling back to the inner repository.
func (c *CachingProfileRepository) Resolve(ctx context.Context, locationID string) (*entity.IrradianceProfile, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.Resolve(ctx, locationID)
	}

	key := c.cacheKey(locationID)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out entity.IrradianceProfile
		if err := json.Unmarshal(b, &out); err == nil {
			return &out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to the catalog
	out, err := c.inner.Resolve(ctx, locationID)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}

	return out, nil
}

// Supported is passed through; the list is small and always served by the inner repository.
func (c *CachingProfileRepository) Supported(ctx context.Context) ([]string, error) {
	return c.inner.Supported(ctx)
}

// Purge removes every cached profile in the namespace. It is called at startup
// so that a redeployed catalog is not shadowed by stale entries.
func (c *CachingProfileRepository) Purge(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	return c.deleteByPattern(ctx, c.namespace+":*")
}

// cacheKey generates a cache key for a location query.
func (c *CachingProfileRepository) cacheKey(locationID string) string {
	return fmt.Sprintf("%s:%s", c.namespace, safe(strings.ToLower(strings.TrimSpace(locationID))))
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingProfileRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
