package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/campus-core/uni-records-api/pkg/errors"
)

// QueryKey is a typed descriptor for a cached query: the entity family plus
// the parameter tuple identifying the query shape. The same descriptor that
// populates an entry is used to invalidate it, so key construction lives in
// one place per service instead of drifting across ad-hoc strings.
type QueryKey struct {
	Entity string
	Params []string
}

// NewQueryKey builds a descriptor for the given entity and parameters.
func NewQueryKey(entity string, params ...string) QueryKey {
	return QueryKey{Entity: entity, Params: params}
}

// String renders the redis key for this descriptor.
func (k QueryKey) String() string {
	parts := append([]string{"uni", k.Entity}, k.Params...)
	return strings.Join(parts, ":")
}

// Pattern renders an eviction pattern covering this descriptor and every
// narrower query under it. Invalidation deliberately over-matches: evicting
// too much is recoverable, serving stale data is not.
func (k QueryKey) Pattern() string {
	return k.String() + "*"
}

// CacheRepository abstracts storage for cached query results.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService is the process-wide read-through cache for record queries.
// Eviction on successful writes is the only staleness-prevention mechanism;
// the TTL exists as a backstop, not as a correctness guarantee.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
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

// Get attempts to retrieve a cached entry. It returns true when the cache
// was hit.
func (s *CacheService) Get(ctx context.Context, key QueryKey, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key.String(), dest)
	duration := time.Since(start)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false, duration)
		}
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key.String()), zap.Error(err))
		return false, err
	}
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(true, duration)
	}
	return true, nil
}

// Set stores the value under the descriptor's key.
func (s *CacheService) Set(ctx context.Context, key QueryKey, value interface{}) error {
	if !s.Enabled() {
		return nil
	}
	start := time.Now()
	err := s.repo.Set(ctx, key.String(), value, s.defaultTTL)
	if s.metrics != nil {
		s.metrics.ObserveCacheWrite(time.Since(start))
	}
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key.String()), zap.Error(err))
	}
	return err
}

// Evict removes the exact entries for the given descriptors. Single-record
// keys are fully determined by their descriptor, so they get a point delete
// instead of a pattern scan. Like Invalidate, eviction is best effort.
func (s *CacheService) Evict(ctx context.Context, keys ...QueryKey) {
	if !s.Enabled() {
		return
	}
	for _, key := range keys {
		if err := s.repo.Delete(ctx, key.String()); err != nil {
			s.logger.Warn("cache evict failed", zap.String("key", key.String()), zap.Error(err))
		}
	}
}

// Invalidate evicts every entry covered by the given descriptors. Eviction
// is best effort: failures are logged and the write that triggered the
// eviction is not rolled back.
func (s *CacheService) Invalidate(ctx context.Context, keys ...QueryKey) {
	if !s.Enabled() {
		return
	}
	for _, key := range keys {
		if err := s.repo.DeleteByPattern(ctx, key.Pattern()); err != nil {
			s.logger.Warn("cache invalidate failed", zap.String("pattern", key.Pattern()), zap.Error(err))
		}
	}
}
