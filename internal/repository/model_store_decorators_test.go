package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/pkg/cache"
	applogger "DemandCast/pkg/logger"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubModelStore counts calls and returns canned values.
type stubModelStore struct {
	mu      sync.Mutex
	calls   map[string]int
	model   *models.SavedModel
	err     error
	cleared int64
}

func newStubModelStore() *stubModelStore { return &stubModelStore{calls: map[string]int{}} }

func (s *stubModelStore) hit(op string) {
	s.mu.Lock()
	s.calls[op]++
	s.mu.Unlock()
}

func (s *stubModelStore) FindCachedModel(context.Context, string, models.ForecastConfig, []float64) (string, error) {
	s.hit("find")
	if s.model != nil {
		return s.model.ModelHash, s.err
	}
	return "", s.err
}

func (s *stubModelStore) LoadModel(context.Context, string) (*models.SavedModel, error) {
	s.hit("load")
	return s.model, s.err
}

func (s *stubModelStore) SaveModel(context.Context, *models.ModelArtifact, string, models.ForecastConfig, []float64, models.Metrics, models.ModelMeta) error {
	s.hit("save")
	return s.err
}

func (s *stubModelStore) CleanupOldModels(context.Context, time.Duration, int) (int64, error) {
	s.hit("cleanup")
	return s.cleared, s.err
}

func (s *stubModelStore) ClearAll(context.Context) (int64, error) {
	s.hit("clear")
	return s.cleared, s.err
}

func (s *stubModelStore) ListModels(context.Context, int) ([]models.CacheInfo, error) {
	s.hit("list")
	return nil, s.err
}

func (s *stubModelStore) AccuracyHistory(context.Context, string, int) ([]models.AccuracyRecord, error) {
	s.hit("history")
	return nil, s.err
}

func TestCachedModelStoreServesSavedModel(t *testing.T) {
	ctx := context.Background()
	inner := newStubModelStore()
	mem := cache.NewMemoryCache()
	defer mem.Close()
	s := NewCachedModelStore(inner, mem, time.Minute, applogger.Nop())

	data := []float64{1, 2, 3, 4}
	artifact := &models.ModelArtifact{Forecast: []float64{5, 6}, Horizon: 2, LastDate: "2024-04-01", Interval: models.IntervalMonth}
	require.NoError(t, s.SaveModel(ctx, artifact, "naive", modelCfg(), data, models.Metrics{Accuracy: 80}, nil))

	hash, err := s.FindCachedModel(ctx, "naive", modelCfg(), data)
	require.NoError(t, err)
	assert.Equal(t, models.ModelHash("naive", models.GenerateConfigHash(modelCfg()), models.DataHash(data)), hash)

	sm, err := s.LoadModel(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6}, sm.Artifact.Forecast)
	assert.Equal(t, 80.0, sm.Accuracy)
	assert.Zero(t, inner.calls["find"])
	assert.Zero(t, inner.calls["load"])
}

func TestCachedModelStoreReadThrough(t *testing.T) {
	ctx := context.Background()
	inner := newStubModelStore()
	inner.model = &models.SavedModel{ModelHash: "h", Algorithm: "naive", Artifact: &models.ModelArtifact{Horizon: 1, Forecast: []float64{2}}}
	mem := cache.NewMemoryCache()
	defer mem.Close()
	s := NewCachedModelStore(inner, mem, time.Minute, applogger.Nop())

	for i := 0; i < 3; i++ {
		sm, err := s.LoadModel(ctx, "h")
		require.NoError(t, err)
		assert.Equal(t, "naive", sm.Algorithm)
	}
	assert.Equal(t, 1, inner.calls["load"])

	inner.cleared = 1
	_, err := s.ClearAll(ctx)
	require.NoError(t, err)
	_, err = s.LoadModel(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls["load"])
}

func TestCachedModelStoreMissPassesThrough(t *testing.T) {
	inner := newStubModelStore()
	mem := cache.NewMemoryCache()
	defer mem.Close()
	s := NewCachedModelStore(inner, mem, time.Minute, applogger.Nop())

	sm, err := s.LoadModel(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, sm)
	assert.Equal(t, 0, mem.Len())
}

func TestBreakerModelStoreOpens(t *testing.T) {
	inner := newStubModelStore()
	inner.err = errors.New("db down")
	s := NewBreakerModelStore(inner, 2, time.Minute, applogger.Nop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.LoadModel(ctx, "h")
		assert.EqualError(t, err, "db down")
	}
	assert.Equal(t, gobreaker.StateOpen, s.State())

	_, err := s.FindCachedModel(ctx, "naive", modelCfg(), []float64{1})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, inner.calls["load"])
	assert.Zero(t, inner.calls["find"])
}

func TestBreakerModelStorePassesValues(t *testing.T) {
	inner := newStubModelStore()
	inner.cleared = 7
	s := NewBreakerModelStore(inner, 3, time.Minute, applogger.Nop())

	n, err := s.CleanupOldModels(context.Background(), time.Hour, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	sm, err := s.LoadModel(context.Background(), "h")
	require.NoError(t, err)
	assert.Nil(t, sm)
	assert.Equal(t, gobreaker.StateClosed, s.State())
}
