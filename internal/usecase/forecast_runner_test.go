package usecase

import (
	"context"
	"testing"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/services/algorithms"
	applogger "DemandCast/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCfg() models.ForecastConfig {
	return models.ForecastConfig{Algorithm: "drift_method", HistoricPeriod: 4, ForecastPeriod: 3}.WithDefaults()
}

func TestRunnerShortSeriesUsesTrainingMetrics(t *testing.T) {
	r := NewForecastRunner(applogger.Nop())
	res := r.Run(context.Background(), algorithms.DriftMethod, series(10, 12, 14, 16, 18), runCfg(), false)

	assert.Equal(t, "Drift Method", res.Algorithm)
	assert.Equal(t, 99.9, res.Accuracy)
	assert.Zero(t, res.MAE)
	require.Len(t, res.ForecastData, 3)
	require.Len(t, res.HistoricData, 4)
	assert.Equal(t, "2023-02-01", res.HistoricData[0].Date)
	assert.Equal(t, "2023-06-01", res.ForecastData[0].Date)
	assert.Equal(t, "Jun 2023", res.ForecastData[0].Period)
	assert.InDelta(t, 20, res.ForecastData[0].Quantity, 1e-9)
	assert.Equal(t, models.TrendIncreasing, res.Trend)
}

func TestRunnerHeldOutMetrics(t *testing.T) {
	r := NewForecastRunner(applogger.Nop())
	// flat history followed by a jump the 80% fit cannot see
	res := r.Run(context.Background(), algorithms.MovingAverage, series(10, 10, 10, 10, 10, 10, 10, 10, 20, 20), runCfg(), false)

	assert.Equal(t, 50.0, res.Accuracy)
	assert.Equal(t, 10.0, res.MAE)
	assert.Equal(t, 10.0, res.RMSE)
	require.Len(t, res.ForecastData, 3)
	// refit on the full series
	assert.InDelta(t, 50.0/3, res.ForecastData[0].Quantity, 1e-9)
}

func TestRunnerDegradesOnPanic(t *testing.T) {
	r := NewForecastRunner(applogger.Nop(), WithModelCache(&fakeCache{panicky: true}))
	res := r.Run(context.Background(), algorithms.LinearRegression, series(1, 2, 3), runCfg(), true)

	assert.Equal(t, "Linear Regression", res.Algorithm)
	assert.Equal(t, 0.0, res.Accuracy)
	assert.Equal(t, 999.0, res.MAE)
	assert.Equal(t, 999.0, res.RMSE)
	assert.Empty(t, res.HistoricData)
	assert.Empty(t, res.ForecastData)
	assert.Equal(t, models.TrendStable, res.Trend)
}

func TestRunnerSavesUnlessSweeping(t *testing.T) {
	cache := &fakeCache{}
	r := NewForecastRunner(applogger.Nop(), WithModelCache(cache))
	s := series(3, 5, 7, 9, 11, 13, 15)

	r.Run(context.Background(), algorithms.DriftMethod, s, runCfg(), false)
	assert.Empty(t, cache.saved)

	r.Run(context.Background(), algorithms.DriftMethod, s, runCfg(), true)
	require.Len(t, cache.saved, 1)
	got := cache.saved[0]
	assert.Equal(t, "drift_method", got.algorithm)
	assert.Equal(t, 3, got.artifact.Horizon)
	assert.Equal(t, "2023-07-01", got.artifact.LastDate)
	assert.Len(t, got.artifact.Forecast, 3)
}

func TestRunnerIgnoresCacheFailures(t *testing.T) {
	cache := &fakeCache{findErr: errBoom, saveErr: errBoom}
	r := NewForecastRunner(applogger.Nop(), WithModelCache(cache))
	res := r.Run(context.Background(), algorithms.DriftMethod, series(3, 5, 7, 9, 11, 13, 15), runCfg(), true)

	assert.Equal(t, 99.9, res.Accuracy)
	assert.Len(t, res.ForecastData, 3)
}

func TestRunnerReusesMatchingArtifact(t *testing.T) {
	s := series(3, 5, 7, 9, 11, 13, 15)
	cache := &fakeCache{hit: &models.SavedModel{
		ModelHash: "abc",
		Algorithm: "drift_method",
		Artifact:  &models.ModelArtifact{Forecast: []float64{1, 2, 3}, Horizon: 3, LastDate: "2023-07-01", Interval: models.IntervalMonth},
		Accuracy:  42.5,
		MAE:       1.25,
		RMSE:      2.5,
	}}
	r := NewForecastRunner(applogger.Nop(), WithModelCache(cache))

	res := r.Run(context.Background(), algorithms.DriftMethod, s, runCfg(), true)
	assert.Equal(t, 42.5, res.Accuracy)
	assert.Equal(t, 1.0, res.ForecastData[0].Quantity)
	assert.Empty(t, cache.saved)

	// a different horizon cannot reuse the artifact
	cfg := runCfg()
	cfg.ForecastPeriod = 5
	res = r.Run(context.Background(), algorithms.DriftMethod, s, cfg, true)
	assert.Equal(t, 99.9, res.Accuracy)
	assert.Len(t, res.ForecastData, 5)
	assert.Len(t, cache.saved, 1)
}

func TestRunnerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewForecastRunner(applogger.Nop())
	res := r.Run(ctx, algorithms.DriftMethod, series(1, 2, 3), runCfg(), false)
	assert.Equal(t, 999.0, res.MAE)
}

// hashCache keys models by content hash like the model stores do.
type hashCache struct {
	byHash map[string]*models.SavedModel
	hits   int
}

func (h *hashCache) key(algorithm string, cfg models.ForecastConfig, data []float64) string {
	return models.ModelHash(algorithm, models.GenerateConfigHash(cfg), models.DataHash(data))
}

func (h *hashCache) FindCachedModel(_ context.Context, algorithm string, cfg models.ForecastConfig, data []float64) (string, error) {
	k := h.key(algorithm, cfg, data)
	if _, ok := h.byHash[k]; ok {
		h.hits++
		return k, nil
	}
	return "", nil
}

func (h *hashCache) LoadModel(_ context.Context, hash string) (*models.SavedModel, error) {
	return h.byHash[hash], nil
}

func (h *hashCache) SaveModel(_ context.Context, artifact *models.ModelArtifact, algorithm string, cfg models.ForecastConfig, data []float64, m models.Metrics, _ models.ModelMeta) error {
	if h.byHash == nil {
		h.byHash = map[string]*models.SavedModel{}
	}
	k := h.key(algorithm, cfg, data)
	h.byHash[k] = &models.SavedModel{ModelHash: k, Algorithm: algorithm, Artifact: artifact, Accuracy: m.Accuracy, MAE: m.MAE, RMSE: m.RMSE}
	return nil
}

func promoSeries(scale float64) models.TimeSeries {
	s := series(10, 14, 11, 15, 12, 16, 13, 17, 14, 18, 15, 19)
	s.Factors = []string{"promo"}
	for i := range s.Points {
		s.Points[i].Exog = []float64{scale * float64(i%2)}
	}
	return s
}

func TestRunnerCacheKeyCoversFactorValues(t *testing.T) {
	cache := &hashCache{}
	r := NewForecastRunner(applogger.Nop(), WithModelCache(cache))
	cfg := models.ForecastConfig{Algorithm: "linear_regression", HistoricPeriod: 4, ForecastPeriod: 3, ExternalFactors: []string{"promo"}}.WithDefaults()

	first := r.Run(context.Background(), algorithms.LinearRegression, promoSeries(1), cfg, true)
	require.Len(t, first.ForecastData, 3)
	require.Len(t, cache.byHash, 1)

	again := r.Run(context.Background(), algorithms.LinearRegression, promoSeries(1), cfg, true)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.ForecastData, again.ForecastData)

	// same quantities, different factor values
	r.Run(context.Background(), algorithms.LinearRegression, promoSeries(50), cfg, true)
	assert.Equal(t, 1, cache.hits)
	assert.Len(t, cache.byHash, 2)
}

func TestTrainingDataAppendsFactorColumns(t *testing.T) {
	s := series(1, 2, 3)
	assert.Equal(t, []float64{1, 2, 3}, s.TrainingData())

	s.Factors = []string{"promo", "temp"}
	s.Points[0].Exog = []float64{1, 20}
	s.Points[1].Exog = []float64{0, 21}
	s.Points[2].Exog = []float64{1, 22}
	assert.Equal(t, []float64{1, 2, 3, 1, 0, 1, 20, 21, 22}, s.TrainingData())
}
