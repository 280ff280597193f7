package usecase

import (
	"context"
	"fmt"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
	applogger "DemandCast/pkg/logger"
)

const (
	cacheInfoLimit   = 50
	cacheInfoMax     = 500
	manualCleanupAge = 7
	manualCleanupMax = 50
)

// ModelCacheService exposes the model cache to operators.
type ModelCacheService struct {
	store   domrepo.ModelStore
	cleanup *CleanupJob
	log     *applogger.Logger
}

func NewModelCacheService(store domrepo.ModelStore, cleanup *CleanupJob, log *applogger.Logger) *ModelCacheService {
	return &ModelCacheService{store: store, cleanup: cleanup, log: log}
}

// Info lists up to limit most recently used cached models. Out of range
// limits fall back to 50.
func (s *ModelCacheService) Info(ctx context.Context, limit int) ([]models.CacheInfo, error) {
	if limit < 1 || limit > cacheInfoMax {
		limit = cacheInfoLimit
	}
	list, err := s.store.ListModels(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return list, nil
}

func (s *ModelCacheService) AccuracyHistory(ctx context.Context, configHash string, daysBack int) ([]models.AccuracyRecord, error) {
	hist, err := s.store.AccuracyHistory(ctx, configHash, daysBack)
	if err != nil {
		return nil, fmt.Errorf("accuracy history: %w", err)
	}
	return hist, nil
}

// ClearOld removes models older than a week and keeps at most 50.
func (s *ModelCacheService) ClearOld(ctx context.Context) (*models.CacheClearResult, error) {
	return s.cleanup.Run(ctx, models.CleanupRequest{MaxAgeDays: manualCleanupAge, MaxCount: manualCleanupMax})
}

func (s *ModelCacheService) ClearAll(ctx context.Context) (*models.CacheClearResult, error) {
	n, err := s.store.ClearAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("clear models: %w", err)
	}
	s.log.Warn("model cache cleared", applogger.Int64("removed", n))
	return &models.CacheClearResult{Message: fmt.Sprintf("Cleared all %d cached models", n), ClearedCount: n}, nil
}
