package algorithms

import (
	"math"
	"testing"
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/pkg/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthly(y ...float64) models.TimeSeries {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	s := models.TimeSeries{Interval: models.IntervalMonth}
	for i, v := range y {
		s.Points = append(s.Points, models.SeriesPoint{PeriodStart: util.AddMonths(start, i), Quantity: v})
	}
	return s
}

func seasonalSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 2*float64(i) + 20*math.Sin(2*math.Pi*float64(i)/12)
	}
	return out
}

func TestCalculateTrend(t *testing.T) {
	assert.Equal(t, models.TrendIncreasing, CalculateTrend([]float64{10, 20, 30, 40}))
	assert.Equal(t, models.TrendDecreasing, CalculateTrend([]float64{40, 30, 20, 10}))
	assert.Equal(t, models.TrendStable, CalculateTrend([]float64{20, 21, 19, 20}))
	assert.Equal(t, models.TrendStable, CalculateTrend([]float64{5}))
}

func TestCalculateMetrics(t *testing.T) {
	m := CalculateMetrics([]float64{10, 20}, []float64{10, 20})
	assert.Equal(t, MaxAccuracy, m.Accuracy)
	assert.Zero(t, m.MAE)
	assert.Zero(t, m.RMSE)

	m = CalculateMetrics([]float64{0, 10}, []float64{5, 10})
	assert.Equal(t, 0.0, m.Accuracy) // |0-5|/1 = 500% on the first pair
	assert.InDelta(t, 2.5, m.MAE, 1e-9)
	assert.InDelta(t, math.Sqrt(12.5), m.RMSE, 1e-9)

	assert.Equal(t, models.Metrics{}, CalculateMetrics(nil, nil))
}

func TestRoundMetrics(t *testing.T) {
	got := RoundMetrics(models.Metrics{Accuracy: 87.25, MAE: 1.005, RMSE: 2.4449})
	assert.Equal(t, 87.3, got.Accuracy)
	assert.Equal(t, 1.01, got.MAE)
	assert.Equal(t, 2.44, got.RMSE)
}

func TestParse(t *testing.T) {
	id, err := Parse("drift_method")
	require.NoError(t, err)
	assert.Equal(t, DriftMethod, id)
	assert.Equal(t, "Drift Method", id.Name())

	_, err = Parse("magic")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnsupportedAlgorithm)
	assert.Contains(t, err.Error(), "unsupported algorithm: magic")
}

func TestCatalogOrder(t *testing.T) {
	ids := Sweep()
	require.Len(t, ids, 22)
	assert.Equal(t, LinearRegression, ids[0])
	assert.Equal(t, DriftMethod, ids[len(ids)-1])
	assert.NotContains(t, ids, BestFit)

	c := Catalog()
	require.Len(t, c, 23)
	assert.Equal(t, string(BestFit), c[len(c)-1].ID)
}

func TestRunRejectsBestFit(t *testing.T) {
	_, _, err := Run(BestFit, monthly(1, 2, 3), 2)
	assert.ErrorIs(t, err, models.ErrUnsupportedAlgorithm)

	_, _, err = Run(LinearRegression, models.TimeSeries{}, 2)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestDriftMethodEndToEnd(t *testing.T) {
	s := monthly(10, 12, 14, 16, 18, 20)
	fc, m, err := Run(DriftMethod, s, 3)
	require.NoError(t, err)
	require.Len(t, fc, 3)
	prev := 20.0
	for _, v := range fc {
		assert.Greater(t, v, prev)
		prev = v
	}
	assert.InDelta(t, 22, fc[0], 1e-9)
	assert.Equal(t, MaxAccuracy, m.Accuracy)
	assert.Equal(t, models.TrendIncreasing, CalculateTrend(s.Quantities()))
}

func TestMovingAverage(t *testing.T) {
	fc, m, err := Run(MovingAverage, monthly(3, 6, 9, 12), 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{9, 9}, fc)
	// trailing means 6 and 9 against actuals 9 and 12
	assert.InDelta(t, 3, m.MAE, 1e-9)
}

func TestNaiveSeasonalRepeatsLastSeason(t *testing.T) {
	y := seasonalSeries(24)
	fc, _, err := Run(NaiveSeasonal, monthly(y...), 14)
	require.NoError(t, err)
	for i := range fc {
		assert.InDelta(t, y[12+i%12], fc[i], 1e-9)
	}

	_, m, err := Run(NaiveSeasonal, monthly(4, 8), 1)
	require.NoError(t, err)
	assert.Equal(t, 60.0, m.Accuracy)
	assert.InDelta(t, 2, m.MAE, 1e-9)
}

func TestHoltWintersFallsBackOnShortSeries(t *testing.T) {
	s := monthly(5, 7, 6, 8, 9, 7, 10)
	a, am, err := Run(HoltWinters, s, 3)
	require.NoError(t, err)
	b, bm, err := Run(ExponentialSmoothing, s, 3)
	require.NoError(t, err)
	assert.Equal(t, b, a)
	assert.Equal(t, bm, am)
}

func TestCrostonIntermittent(t *testing.T) {
	fc, _, err := Run(Croston, monthly(0, 5, 0, 0, 6, 0, 4, 0), 4)
	require.NoError(t, err)
	require.Len(t, fc, 4)
	for _, v := range fc {
		assert.Equal(t, fc[0], v)
		assert.Greater(t, v, 0.0)
		assert.Less(t, v, 6.0)
	}
}

func TestSESPicksSeasonalModel(t *testing.T) {
	y := seasonalSeries(36)
	fc, m, err := Run(SES, monthly(y...), 12)
	require.NoError(t, err)
	require.Len(t, fc, 12)
	assert.Greater(t, m.Accuracy, 80.0)
	// the forecast should carry the yearly swing rather than a flat line
	assert.Greater(t, maxOf(fc)-minOf(fc), 10.0)
}

func TestForestAndBoostingDeterministic(t *testing.T) {
	s := monthly(seasonalSeries(20)...)
	for _, id := range []ID{RandomForest, XGBoost, LSTMLike, NeuralNetwork} {
		a, _, err := Run(id, s, 4)
		require.NoError(t, err, id)
		b, _, err := Run(id, s, 4)
		require.NoError(t, err, id)
		assert.Equal(t, a, b, id)
	}
}

func TestExogColumnsAreUsed(t *testing.T) {
	s := monthly(seasonalSeries(18)...)
	s.Factors = []string{"promo"}
	for i := range s.Points {
		s.Points[i].Exog = []float64{float64(i % 2)}
	}
	for _, id := range []ID{LinearRegression, RandomForest, XGBoost, SVR, KNN, NeuralNetwork, LSTMLike} {
		fc, _, err := Run(id, s, 5)
		require.NoError(t, err, id)
		assert.Len(t, fc, 5, id)
	}
}

func TestSweepContract(t *testing.T) {
	series := map[string][]float64{
		"two":          {4, 6},
		"three":        {4, 6, 5},
		"five":         {10, 12, 11, 13, 15},
		"linear":       {10, 12, 14, 16, 18, 20, 22, 24, 26, 28, 30, 32},
		"seasonal":     seasonalSeries(30),
		"intermittent": {0, 0, 3, 0, 5, 0, 0, 4, 0, 2, 0, 0, 6, 0},
		"flat":         {7, 7, 7, 7, 7, 7, 7, 7},
	}
	for name, y := range series {
		s := monthly(y...)
		for _, id := range Sweep() {
			fc, m, err := Run(id, s, 6)
			require.NoError(t, err, "%s/%s", name, id)
			require.Len(t, fc, 6, "%s/%s", name, id)
			for _, v := range fc {
				assert.GreaterOrEqual(t, v, 0.0, "%s/%s", name, id)
			}
			assert.GreaterOrEqual(t, m.Accuracy, 0.0, "%s/%s", name, id)
			assert.LessOrEqual(t, m.Accuracy, MaxAccuracy, "%s/%s", name, id)
			assert.GreaterOrEqual(t, m.MAE, 0.0, "%s/%s", name, id)
			assert.GreaterOrEqual(t, m.RMSE, 0.0, "%s/%s", name, id)
		}
	}
}

func TestKFold(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 4}, {4, 7}, {7, 10}}, kFold(10, 3))
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}}, kFold(2, 3))
}

func TestCenteredMean(t *testing.T) {
	got := centeredMean([]float64{4, 4, 4, 4}, 2)
	assert.Equal(t, []float64{2, 4, 4, 4}, got)
}

func maxOf(xs []float64) float64 {
	m := math.Inf(-1)
	for _, v := range xs {
		m = math.Max(m, v)
	}
	return m
}

func minOf(xs []float64) float64 {
	m := math.Inf(1)
	for _, v := range xs {
		m = math.Min(m, v)
	}
	return m
}
