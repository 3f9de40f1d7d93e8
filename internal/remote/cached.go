package remote

import (
	"context"
	"encoding/json"
	"time"

	"fleetdocs/internal/logger"
	"fleetdocs/internal/model"
)

// Cache is the byte-level cache used by CachedAPI. Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// CachedAPI caches the slow-moving read queries (assignments and system
// configuration). Everything else passes through to the wrapped API.
type CachedAPI struct {
	DocumentAPI
	cache Cache
	ttl   time.Duration
}

func NewCached(api DocumentAPI, cache Cache, ttl time.Duration) *CachedAPI {
	return &CachedAPI{DocumentAPI: api, cache: cache, ttl: ttl}
}

func assignmentsKey(module model.Module) string { return "fleetdocs:assignments:" + module.String() }
func sysConfigKey(key string) string            { return "fleetdocs:sysconfig:" + key }

func (c *CachedAPI) ListAssignments(ctx context.Context, module model.Module) ([]model.DocumentTypeAssignment, error) {
	var out []model.DocumentTypeAssignment
	if c.load(ctx, assignmentsKey(module), &out) {
		return out, nil
	}
	out, err := c.DocumentAPI.ListAssignments(ctx, module)
	if err != nil {
		return nil, err
	}
	c.store(ctx, assignmentsKey(module), out)
	return out, nil
}

func (c *CachedAPI) SystemConfigValue(ctx context.Context, key string) (string, error) {
	var out string
	if c.load(ctx, sysConfigKey(key), &out) {
		return out, nil
	}
	out, err := c.DocumentAPI.SystemConfigValue(ctx, key)
	if err != nil {
		return "", err
	}
	c.store(ctx, sysConfigKey(key), out)
	return out, nil
}

// InvalidateAssignments drops the cached assignment list for module.
func (c *CachedAPI) InvalidateAssignments(ctx context.Context, module model.Module) error {
	return c.cache.Del(ctx, assignmentsKey(module))
}

func (c *CachedAPI) load(ctx context.Context, key string, dst any) bool {
	b, err := c.cache.Get(ctx, key)
	if err != nil {
		log := logger.Get()
		log.Warn().Err(err).Str("key", key).Msg("cache_get_failed")
		return false
	}
	if b == nil {
		return false
	}
	return json.Unmarshal(b, dst) == nil
}

func (c *CachedAPI) store(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, b, c.ttl); err != nil {
		log := logger.Get()
		log.Warn().Err(err).Str("key", key).Msg("cache_set_failed")
	}
}
