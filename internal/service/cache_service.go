package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/attendly/attendly-api/pkg/errors"
)

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CacheService layers hit/miss accounting over the Redis-backed store. All
// methods degrade to a no-op (miss) when the store is unavailable so callers
// never depend on it.
type CacheService struct {
	store   cacheStore
	metrics *MetricsService
	logger  *zap.Logger
}

// NewCacheService creates a new CacheService.
func NewCacheService(store cacheStore, metrics *MetricsService, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{store: store, metrics: metrics, logger: logger}
}

// GetJSON loads a cached value into dest. Returns false on any miss or error.
func (s *CacheService) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if s == nil || s.store == nil {
		return false
	}
	if err := s.store.Get(ctx, key, dest); err != nil {
		if err != appErrors.ErrCacheMiss {
			s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
		return false
	}
	s.metrics.RecordCacheOperation(true)
	return true
}

// SetJSON stores a value under key for ttl. Failures are logged, not returned.
func (s *CacheService) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate removes keys from the cache.
func (s *CacheService) Invalidate(ctx context.Context, keys ...string) {
	if s == nil || s.store == nil || len(keys) == 0 {
		return
	}
	if err := s.store.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
