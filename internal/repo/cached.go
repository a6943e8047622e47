package repo

import (
	"context"
	"time"

	"csp-portal/internal/cache"
	"csp-portal/internal/metrics"

	"go.uber.org/zap"
)

const (
	cacheKeySystemStatus = "system-status"
	cacheKeyWarMode      = "war-mode"
)

// Cached decorates a Repository with a Redis read-through cache for the
// dashboard reads every client polls: the system status list and the war
// mode singleton. Updates write the fresh value through. A read that loaded
// the old row before a concurrent update may still store it afterwards; the
// TTL bounds how long that value is served. Redis failures are logged and
// never fail a call.
type Cached struct {
	Repository
	redis   *cache.Redis
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCached wraps next. metrics may be nil.
func NewCached(next Repository, redis *cache.Redis, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *Cached {
	return &Cached{
		Repository: next,
		redis:      redis,
		ttl:        ttl,
		logger:     logger.With(zap.String("component", "repo_cache")),
		metrics:    m,
	}
}

func (c *Cached) ListSystemStatus(ctx context.Context) ([]SystemStatusItem, error) {
	var cached []SystemStatusItem
	if c.lookup(ctx, cacheKeySystemStatus, &cached) {
		return cached, nil
	}
	list, err := c.Repository.ListSystemStatus(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, cacheKeySystemStatus, list)
	return list, nil
}

func (c *Cached) UpdateSystemStatus(ctx context.Context, service string, patch SystemStatusPatch) (*SystemStatusItem, error) {
	item, err := c.Repository.UpdateSystemStatus(ctx, service, patch)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	list, err := c.Repository.ListSystemStatus(ctx)
	if err != nil {
		c.logger.Warn("reload system status", zap.Error(err))
		c.invalidate(ctx, cacheKeySystemStatus)
		return item, nil
	}
	c.store(ctx, cacheKeySystemStatus, list)
	return item, nil
}

func (c *Cached) GetWarMode(ctx context.Context) (*WarModeStatus, error) {
	var cached WarModeStatus
	if c.lookup(ctx, cacheKeyWarMode, &cached) {
		return &cached, nil
	}
	w, err := c.Repository.GetWarMode(ctx)
	if err != nil || w == nil {
		return w, err
	}
	c.store(ctx, cacheKeyWarMode, w)
	return w, nil
}

func (c *Cached) UpdateWarMode(ctx context.Context, patch WarModePatch) (*WarModeStatus, error) {
	w, err := c.Repository.UpdateWarMode(ctx, patch)
	if err != nil {
		return nil, err
	}
	if w == nil {
		c.invalidate(ctx, cacheKeyWarMode)
		return nil, nil
	}
	c.store(ctx, cacheKeyWarMode, w)
	return w, nil
}

// Seed changes the cached rows, so both keys are dropped afterwards.
func (c *Cached) Seed(ctx context.Context) error {
	if err := c.Repository.Seed(ctx); err != nil {
		return err
	}
	c.invalidate(ctx, cacheKeySystemStatus, cacheKeyWarMode)
	return nil
}

func (c *Cached) lookup(ctx context.Context, key string, dest any) bool {
	hit, err := c.redis.GetJSON(ctx, key, dest)
	if err != nil {
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		c.metrics.IncError("cache")
		return false
	}
	if c.metrics != nil {
		result := "miss"
		if hit {
			result = "hit"
		}
		c.metrics.CacheLookups.WithLabelValues(key, result).Inc()
	}
	return hit
}

func (c *Cached) store(ctx context.Context, key string, value any) {
	if err := c.redis.SetJSON(ctx, key, value, c.ttl); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		c.metrics.IncError("cache")
	}
}

func (c *Cached) invalidate(ctx context.Context, keys ...string) {
	if err := c.redis.Delete(ctx, keys...); err != nil {
		c.logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
		c.metrics.IncError("cache")
	}
}
