package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/pack-progress-api/internal/models"
	appErrors "github.com/noah-isme/pack-progress-api/pkg/errors"
)

const classFeedPattern = "class_notes:*"

type cacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService caches the class notes feed, which is the same for every viewer. Cache
// failures are logged and treated as misses. A nil or disabled service never caches.
type CacheService struct {
	repo    cacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCacheService constructs a cache service. A non-positive ttl disables caching.
func NewCacheService(repo cacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, ttl: ttl, logger: logger}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.repo != nil && s.ttl > 0
}

func classFeedKey(limit int) string {
	return fmt.Sprintf("class_notes:%d", limit)
}

// ClassNotes returns the cached feed rows for limit.
func (s *CacheService) ClassNotes(ctx context.Context, limit int) ([]models.Note, bool) {
	if !s.Enabled() {
		return nil, false
	}
	var notes []models.Note
	err := s.repo.Get(ctx, classFeedKey(limit), &notes)
	switch {
	case err == nil:
		s.metrics.RecordCacheOperation("hit")
		return notes, true
	case errors.Is(err, appErrors.ErrCacheMiss):
		s.metrics.RecordCacheOperation("miss")
	default:
		s.metrics.RecordCacheOperation("error")
		s.logger.Warn("class feed cache get failed", zap.Error(err))
	}
	return nil, false
}

// StoreClassNotes caches feed rows for limit.
func (s *CacheService) StoreClassNotes(ctx context.Context, limit int, notes []models.Note) {
	if !s.Enabled() {
		return
	}
	start := time.Now()
	err := s.repo.Set(ctx, classFeedKey(limit), notes, s.ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("class feed cache set failed", zap.Error(err))
	}
}

// InvalidateClassNotes drops every cached feed.
func (s *CacheService) InvalidateClassNotes(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.DeleteByPattern(ctx, classFeedPattern); err != nil {
		s.logger.Warn("class feed cache invalidate failed", zap.Error(err))
	}
}
