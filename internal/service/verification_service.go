package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/saral-edu/institute-api/internal/models"
	appErrors "github.com/saral-edu/institute-api/pkg/errors"
)

type verificationCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type rollResultReader interface {
	QueryByRoll(ctx context.Context, rollNumber string) ([]models.ResultDetail, error)
}

// VerificationService serves the public result lookup by roll number,
// caching payloads since verification traffic is read-heavy and tolerant
// of slightly stale data.
type VerificationService struct {
	results rollResultReader
	cache   verificationCache
	metrics *MetricsService
	logger  *zap.Logger
	ttl     time.Duration
}

// NewVerificationService constructs VerificationService.
func NewVerificationService(results rollResultReader, cache verificationCache, metrics *MetricsService, logger *zap.Logger, ttl time.Duration) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &VerificationService{results: results, cache: cache, metrics: metrics, logger: logger, ttl: ttl}
}

// VerifyByRoll returns every result published for a roll number.
func (s *VerificationService) VerifyByRoll(ctx context.Context, rollNumber string) ([]models.ResultDetail, error) {
	key := verificationCacheKey(rollNumber)

	if s.cache != nil {
		start := time.Now()
		var cached []models.ResultDetail
		err := s.cache.Get(ctx, key, &cached)
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("verification cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	results, err := s.results.QueryByRoll(ctx, rollNumber)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		start := time.Now()
		if err := s.cache.Set(ctx, key, results, s.ttl); err != nil {
			s.logger.Warn("verification cache write failed", zap.String("key", key), zap.Error(err))
		}
		s.metrics.ObserveCacheWrite(time.Since(start))
	}

	return results, nil
}
