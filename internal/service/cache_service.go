package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
)

// CacheRepository persists rendered public payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Purge(ctx context.Context, patterns ...string) (int, error)
}

// CacheService fronts the page cache. Cache faults never fail a request: reads
// degrade to misses and writes are logged.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service. A disabled or repository-less
// service reports every lookup as a miss.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Lookup decodes the entry stored under key into dest and reports a hit.
func (s *CacheService) Lookup(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("page cache read failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

// Store saves value under key. A non-positive ttl uses the service default.
func (s *CacheService) Store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("page cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops every entry matching any of patterns and returns how many were removed.
func (s *CacheService) Invalidate(ctx context.Context, patterns ...string) (int, error) {
	if !s.Enabled() || len(patterns) == 0 {
		return 0, nil
	}
	removed, err := s.repo.Purge(ctx, patterns...)
	if err != nil {
		s.logger.Warn("page cache invalidation failed", zap.Strings("patterns", patterns), zap.Error(err))
		return removed, err
	}
	if removed > 0 {
		s.logger.Debug("page cache invalidated", zap.Strings("patterns", patterns), zap.Int("removed", removed))
	}
	return removed, nil
}
