package usecase

import (
	"context"
	"fmt"
	"time"

	"DemandCast/internal/domain/models"
	drepo "DemandCast/internal/domain/repository"
	"DemandCast/internal/services/aggregation"
	"DemandCast/internal/services/algorithms"
	applogger "DemandCast/pkg/logger"
)

// ModelCache is the content-hash cache the runner consults and fills. Every
// failure is logged and ignored.
type ModelCache interface {
	FindCachedModel(ctx context.Context, algorithm string, cfg models.ForecastConfig, data []float64) (string, error)
	LoadModel(ctx context.Context, hash string) (*models.SavedModel, error)
	SaveModel(ctx context.Context, artifact *models.ModelArtifact, algorithm string, cfg models.ForecastConfig, data []float64, m models.Metrics, meta models.ModelMeta) error
}

// NoopModelCache never hits and discards saves.
type NoopModelCache struct{}

func (NoopModelCache) FindCachedModel(context.Context, string, models.ForecastConfig, []float64) (string, error) {
	return "", nil
}

func (NoopModelCache) LoadModel(context.Context, string) (*models.SavedModel, error) { return nil, nil }

func (NoopModelCache) SaveModel(context.Context, *models.ModelArtifact, string, models.ForecastConfig, []float64, models.Metrics, models.ModelMeta) error {
	return nil
}

var (
	_ ModelCache = NoopModelCache{}
	_ ModelCache = (drepo.ModelStore)(nil)
)

// minSplitLen is the shortest series that gets a held-out test slice.
const minSplitLen = 6

// Degraded metrics reported for a failed algorithm.
const (
	degradedMAE  = 999
	degradedRMSE = 999
)

// ForecastRunner runs one algorithm over one series and shapes the result.
type ForecastRunner struct {
	cache   ModelCache
	metrics drepo.Metrics
	log     *applogger.Logger
}

// RunnerOption configures a ForecastRunner.
type RunnerOption func(*ForecastRunner)

// WithModelCache sets the model cache. A nil cache means no caching.
func WithModelCache(c ModelCache) RunnerOption {
	return func(r *ForecastRunner) {
		if c != nil {
			r.cache = c
		}
	}
}

// WithRunnerMetrics records per-algorithm timings and accuracy.
func WithRunnerMetrics(m drepo.Metrics) RunnerOption {
	return func(r *ForecastRunner) { r.metrics = m }
}

// NewForecastRunner creates a runner with a no-op cache unless one is given.
func NewForecastRunner(log *applogger.Logger, opts ...RunnerOption) *ForecastRunner {
	r := &ForecastRunner{cache: NoopModelCache{}, log: log}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes id over s. It never fails: errors and panics inside the
// algorithm produce a degraded result. persist is false inside best-fit
// sweeps.
func (r *ForecastRunner) Run(ctx context.Context, id algorithms.ID, s models.TimeSeries, cfg models.ForecastConfig, persist bool) models.AlgorithmResult {
	start := time.Now()
	res, err := r.run(ctx, id, s, cfg, persist)
	elapsed := time.Since(start)
	if err != nil {
		r.log.Warn("algorithm degraded",
			applogger.String("algorithm", string(id)),
			applogger.Int("points", s.Len()),
			applogger.Duration("duration_ms", elapsed),
			applogger.Error(err),
		)
		res = degradedResult(id)
	}
	if r.metrics != nil {
		r.metrics.RecordAlgorithmRun(string(id), res.Accuracy, elapsed.Seconds(), err != nil)
	}
	return res
}

func degradedResult(id algorithms.ID) models.AlgorithmResult {
	return models.AlgorithmResult{
		Algorithm:    id.Name(),
		Accuracy:     0,
		MAE:          degradedMAE,
		RMSE:         degradedRMSE,
		HistoricData: []models.DataPoint{},
		ForecastData: []models.DataPoint{},
		Trend:        models.TrendStable,
	}
}

// degraded reports whether r is the placeholder of a failed run.
func degraded(r models.AlgorithmResult) bool {
	return len(r.ForecastData) == 0 || (r.Accuracy == 0 && r.MAE == degradedMAE)
}

func (r *ForecastRunner) run(ctx context.Context, id algorithms.ID, s models.TimeSeries, cfg models.ForecastConfig, persist bool) (res models.AlgorithmResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in %s: %v", id, p)
		}
	}()
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if s.Len() == 0 {
		return res, models.NewDomainError(models.ErrInsufficientData, "Insufficient data for forecasting")
	}

	data := s.TrainingData()
	horizon := cfg.ForecastPeriod
	lastDate := s.LastDate().Format(models.DateLayout)

	if cached := r.lookup(ctx, id, cfg, data, horizon, lastDate, s.Interval); cached != nil {
		m := models.Metrics{Accuracy: cached.Accuracy, MAE: cached.MAE, RMSE: cached.RMSE}
		return shape(id, s, cfg, cached.Artifact.Forecast, m), nil
	}

	m, err := heldOutMetrics(id, s)
	if err != nil {
		return res, err
	}
	fc, _, err := algorithms.Run(id, s, horizon)
	if err != nil {
		return res, fmt.Errorf("forecast %s: %w", id, err)
	}
	m = algorithms.RoundMetrics(m)

	if persist {
		artifact := &models.ModelArtifact{Forecast: fc, Horizon: horizon, LastDate: lastDate, Interval: s.Interval}
		meta := models.ModelMeta{"data_points": s.Len()}
		if err := r.cache.SaveModel(ctx, artifact, string(id), cfg, data, m, meta); err != nil {
			r.log.Warn("failed to save model to cache", applogger.String("algorithm", string(id)), applogger.Error(err))
		}
	}
	return shape(id, s, cfg, fc, m), nil
}

// lookup returns the cached model when its artifact answers this request.
func (r *ForecastRunner) lookup(ctx context.Context, id algorithms.ID, cfg models.ForecastConfig, data []float64, horizon int, lastDate string, iv models.Interval) *models.SavedModel {
	hash, err := r.cache.FindCachedModel(ctx, string(id), cfg, data)
	if err != nil {
		r.log.Warn("model cache lookup failed", applogger.String("algorithm", string(id)), applogger.Error(err))
		return nil
	}
	if hash == "" {
		return nil
	}
	sm, err := r.cache.LoadModel(ctx, hash)
	if err != nil {
		r.log.Warn("model cache load failed", applogger.String("model_hash", hash), applogger.Error(err))
		return nil
	}
	if sm == nil || !sm.Artifact.Matches(horizon, lastDate, iv) {
		return nil
	}
	r.log.Debug("using cached model", applogger.String("algorithm", string(id)), applogger.String("model_hash", hash))
	return sm
}

// heldOutMetrics scores id on the last 20% of s after fitting the first 80%.
// Series shorter than minSplitLen fall back to training metrics.
func heldOutMetrics(id algorithms.ID, s models.TimeSeries) (models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	if n < minSplitLen {
		return algorithms.TrainingMetrics(id, y), nil
	}
	split := n * 8 / 10
	test := y[split:]
	fc, _, err := algorithms.Run(id, s.Head(split), len(test))
	if err != nil {
		return models.Metrics{}, fmt.Errorf("evaluate %s: %w", id, err)
	}
	return algorithms.CalculateMetrics(test, fc), nil
}

// shape builds the API result: the last historicPeriod points and one dated
// point per forecast value.
func shape(id algorithms.ID, s models.TimeSeries, cfg models.ForecastConfig, fc []float64, m models.Metrics) models.AlgorithmResult {
	hist := s.Tail(cfg.HistoricPeriod)
	historic := make([]models.DataPoint, 0, len(hist))
	for _, p := range hist {
		label := p.Label
		if label == "" {
			label = aggregation.Label(p.PeriodStart, s.Interval)
		}
		historic = append(historic, models.DataPoint{
			Date:     p.PeriodStart.Format(models.DateLayout),
			Quantity: p.Quantity,
			Period:   label,
		})
	}

	dates := aggregation.ForecastDates(s.LastDate(), s.Interval, len(fc))
	forecast := make([]models.DataPoint, len(fc))
	for i, v := range fc {
		forecast[i] = models.DataPoint{
			Date:     dates[i].Format(models.DateLayout),
			Quantity: v,
			Period:   aggregation.Label(dates[i], s.Interval),
		}
	}

	return models.AlgorithmResult{
		Algorithm:    id.Name(),
		Accuracy:     m.Accuracy,
		MAE:          m.MAE,
		RMSE:         m.RMSE,
		HistoricData: historic,
		ForecastData: forecast,
		Trend:        algorithms.CalculateTrend(s.Quantities()),
	}
}
