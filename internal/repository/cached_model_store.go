package repository

import (
	"context"
	"errors"
	"time"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
	"DemandCast/pkg/cache"
	applogger "DemandCast/pkg/logger"
)

const modelKeyPrefix = "model"

// CachedModelStore keeps recently saved or loaded models in a cache.Service
// in front of a ModelStore. Cache failures fall through to the store.
type CachedModelStore struct {
	next  domrepo.ModelStore
	cache cache.Service
	ttl   time.Duration
	l     *applogger.Logger
}

func NewCachedModelStore(next domrepo.ModelStore, c cache.Service, ttl time.Duration, l *applogger.Logger) *CachedModelStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedModelStore{next: next, cache: c, ttl: ttl, l: l}
}

var _ domrepo.ModelStore = (*CachedModelStore)(nil)

func modelKey(hash string) string { return cache.GenerateKey(modelKeyPrefix, hash) }

func (s *CachedModelStore) FindCachedModel(ctx context.Context, algorithm string, cfg models.ForecastConfig, data []float64) (string, error) {
	hash := models.ModelHash(algorithm, models.GenerateConfigHash(cfg), models.DataHash(data))
	if ok, err := s.cache.Exists(ctx, modelKey(hash)); err == nil && ok {
		return hash, nil
	}
	return s.next.FindCachedModel(ctx, algorithm, cfg, data)
}

// LoadModel serves cached copies without touching usage counters.
func (s *CachedModelStore) LoadModel(ctx context.Context, hash string) (*models.SavedModel, error) {
	var sm models.SavedModel
	err := s.cache.Get(ctx, modelKey(hash), &sm)
	if err == nil && sm.Artifact != nil {
		return &sm, nil
	}
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		s.l.Warn("model cache read failed", applogger.String("model_hash", hash), applogger.Error(err))
	}

	loaded, err := s.next.LoadModel(ctx, hash)
	if err != nil || loaded == nil {
		return loaded, err
	}
	s.put(ctx, loaded)
	return loaded, nil
}

func (s *CachedModelStore) SaveModel(ctx context.Context, artifact *models.ModelArtifact, algorithm string, cfg models.ForecastConfig,
	data []float64, m models.Metrics, meta models.ModelMeta) error {
	if err := s.next.SaveModel(ctx, artifact, algorithm, cfg, data, m, meta); err != nil {
		return err
	}
	configHash := models.GenerateConfigHash(cfg)
	dataHash := models.DataHash(data)
	now := time.Now().UTC()
	s.put(ctx, &models.SavedModel{
		ModelHash:  models.ModelHash(algorithm, configHash, dataHash),
		Algorithm:  algorithm,
		ConfigHash: configHash,
		DataHash:   dataHash,
		Artifact:   artifact,
		Meta:       meta,
		Accuracy:   m.Accuracy,
		MAE:        m.MAE,
		RMSE:       m.RMSE,
		CreatedAt:  now,
		LastUsed:   now,
		UseCount:   1,
	})
	return nil
}

func (s *CachedModelStore) put(ctx context.Context, sm *models.SavedModel) {
	if err := s.cache.Set(ctx, modelKey(sm.ModelHash), sm, s.ttl); err != nil {
		s.l.Warn("model cache write failed", applogger.String("model_hash", sm.ModelHash), applogger.Error(err))
	}
}

func (s *CachedModelStore) invalidate(ctx context.Context) {
	if err := s.cache.DeleteByPattern(ctx, cache.BuildPattern(modelKeyPrefix+":")); err != nil {
		s.l.Warn("model cache invalidate failed", applogger.Error(err))
	}
}

func (s *CachedModelStore) CleanupOldModels(ctx context.Context, maxAge time.Duration, maxCount int) (int64, error) {
	n, err := s.next.CleanupOldModels(ctx, maxAge, maxCount)
	if err == nil && n > 0 {
		s.invalidate(ctx)
	}
	return n, err
}

func (s *CachedModelStore) ClearAll(ctx context.Context) (int64, error) {
	n, err := s.next.ClearAll(ctx)
	if err == nil {
		s.invalidate(ctx)
	}
	return n, err
}

func (s *CachedModelStore) ListModels(ctx context.Context, limit int) ([]models.CacheInfo, error) {
	return s.next.ListModels(ctx, limit)
}

func (s *CachedModelStore) AccuracyHistory(ctx context.Context, configHash string, daysBack int) ([]models.AccuracyRecord, error) {
	return s.next.AccuracyHistory(ctx, configHash, daysBack)
}
