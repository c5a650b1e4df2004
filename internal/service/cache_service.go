package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/edupulse/wellness-api/internal/repository"
	appErrors "github.com/edupulse/wellness-api/pkg/errors"
)

// CacheService wraps the redis-backed cache repository with analytics
// conventions: namespaced keys, best-effort writes, and pattern
// invalidation per school.
type CacheService struct {
	cache  *repository.CacheRepository
	ttl    time.Duration
	logger *zap.Logger
}

func NewCacheService(cache *repository.CacheRepository, ttl time.Duration, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CacheService{cache: cache, ttl: ttl, logger: logger}
}

// Get unmarshals the cached value into dest. Returns ErrCacheMiss when the
// key is absent or the cache is disabled.
func (s *CacheService) Get(ctx context.Context, key string, dest any) error {
	if s == nil || s.cache == nil {
		return appErrors.ErrCacheMiss
	}
	return s.cache.Get(ctx, key, dest)
}

// Set stores a value best-effort. Cache failures are logged, never surfaced.
func (s *CacheService) Set(ctx context.Context, key string, value any) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateSchool drops all cached analytics for one school.
func (s *CacheService) InvalidateSchool(ctx context.Context, schoolID string) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "wellness:school:"+schoolID+":*"); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("school_id", schoolID), zap.Error(err))
	}
}

// InvalidateTeacher drops cached analytics for one teacher.
func (s *CacheService) InvalidateTeacher(ctx context.Context, teacherID string) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "wellness:teacher:"+teacherID+":*"); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("teacher_id", teacherID), zap.Error(err))
	}
}
