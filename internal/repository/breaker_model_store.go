package repository

import (
	"context"
	"time"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
	applogger "DemandCast/pkg/logger"

	"github.com/sony/gobreaker"
)

// BreakerModelStore guards a ModelStore with a circuit breaker.
type BreakerModelStore struct {
	next domrepo.ModelStore
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerModelStore trips after maxFailures consecutive errors and probes
// again after openTimeout.
func NewBreakerModelStore(next domrepo.ModelStore, maxFailures uint32, openTimeout time.Duration, l *applogger.Logger) *BreakerModelStore {
	st := gobreaker.Settings{
		Name:     "model-store",
		Interval: 60 * time.Second,
		Timeout:  openTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("circuit breaker state change",
				applogger.String("breaker", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()),
			)
		},
	}
	return &BreakerModelStore{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

var _ domrepo.ModelStore = (*BreakerModelStore)(nil)

// State reports the breaker state.
func (s *BreakerModelStore) State() gobreaker.State { return s.cb.State() }

func guarded[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	v, err := cb.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (s *BreakerModelStore) FindCachedModel(ctx context.Context, algorithm string, cfg models.ForecastConfig, data []float64) (string, error) {
	return guarded(s.cb, func() (string, error) { return s.next.FindCachedModel(ctx, algorithm, cfg, data) })
}

func (s *BreakerModelStore) LoadModel(ctx context.Context, hash string) (*models.SavedModel, error) {
	return guarded(s.cb, func() (*models.SavedModel, error) { return s.next.LoadModel(ctx, hash) })
}

func (s *BreakerModelStore) SaveModel(ctx context.Context, artifact *models.ModelArtifact, algorithm string, cfg models.ForecastConfig,
	data []float64, m models.Metrics, meta models.ModelMeta) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.SaveModel(ctx, artifact, algorithm, cfg, data, m, meta)
	})
	return err
}

func (s *BreakerModelStore) CleanupOldModels(ctx context.Context, maxAge time.Duration, maxCount int) (int64, error) {
	return guarded(s.cb, func() (int64, error) { return s.next.CleanupOldModels(ctx, maxAge, maxCount) })
}

func (s *BreakerModelStore) ClearAll(ctx context.Context) (int64, error) {
	return guarded(s.cb, func() (int64, error) { return s.next.ClearAll(ctx) })
}

func (s *BreakerModelStore) ListModels(ctx context.Context, limit int) ([]models.CacheInfo, error) {
	return guarded(s.cb, func() ([]models.CacheInfo, error) { return s.next.ListModels(ctx, limit) })
}

func (s *BreakerModelStore) AccuracyHistory(ctx context.Context, configHash string, daysBack int) ([]models.AccuracyRecord, error) {
	return guarded(s.cb, func() ([]models.AccuracyRecord, error) { return s.next.AccuracyHistory(ctx, configHash, daysBack) })
}
