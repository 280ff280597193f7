package usecase

import (
	"context"
	"time"

	"DemandCast/internal/domain/models"
	drepo "DemandCast/internal/domain/repository"
	domsvc "DemandCast/internal/domain/service"
	"DemandCast/internal/services/aggregation"
	"DemandCast/internal/services/algorithms"
	applogger "DemandCast/pkg/logger"
)

// ForecastService routes a request to the single, item, two-dimension or
// three-dimension pipeline.
type ForecastService struct {
	engine    *Engine
	multi     *MultiForecaster
	loader    *SeriesLoader
	publisher drepo.ResultPublisher
	metrics   drepo.Metrics
	log       *applogger.Logger
}

// ServiceOption configures a ForecastService.
type ServiceOption func(*ForecastService)

// WithResultPublisher emits a ResultEvent after every successful request.
func WithResultPublisher(p drepo.ResultPublisher) ServiceOption {
	return func(s *ForecastService) { s.publisher = p }
}

// WithServiceMetrics records request latency and failures.
func WithServiceMetrics(m drepo.Metrics) ServiceOption {
	return func(s *ForecastService) { s.metrics = m }
}

// NewForecastService creates the request router.
func NewForecastService(engine *Engine, multi *MultiForecaster, loader *SeriesLoader, log *applogger.Logger, opts ...ServiceOption) *ForecastService {
	s := &ForecastService{engine: engine, multi: multi, loader: loader, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ domsvc.Forecaster = (*ForecastService)(nil)

// Forecast answers cfg without progress reporting.
func (s *ForecastService) Forecast(ctx context.Context, cfg models.ForecastConfig) (models.ForecastOutcome, error) {
	return s.ForecastWithProgress(ctx, cfg, nil)
}

// ForecastWithProgress answers cfg, notifying obs as each combination of a
// multi request finishes. obs may be nil.
func (s *ForecastService) ForecastWithProgress(ctx context.Context, cfg models.ForecastConfig, obs domsvc.ProgressObserver) (models.ForecastOutcome, error) {
	start := time.Now()
	cfg = cfg.WithDefaults()
	out, mode, err := s.route(ctx, cfg, obs)
	if s.metrics != nil {
		s.metrics.RecordLatency("forecast_"+mode, time.Since(start).Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("forecast_" + mode)
		}
		s.log.Error("forecast failed",
			applogger.String("mode", mode),
			applogger.String("algorithm", cfg.Algorithm),
			applogger.Error(err),
		)
		return models.ForecastOutcome{}, err
	}

	hash := models.GenerateConfigHash(cfg)
	if out.Single != nil {
		out.Single.ConfigHash = hash
	}
	s.publish(ctx, hash, cfg, out)
	s.log.Info("forecast completed",
		applogger.String("mode", mode),
		applogger.String("algorithm", cfg.Algorithm),
		applogger.String("config_hash", hash),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *ForecastService) route(ctx context.Context, cfg models.ForecastConfig, obs domsvc.ProgressObserver) (models.ForecastOutcome, string, error) {
	if _, err := algorithms.Parse(cfg.Algorithm); err != nil {
		return models.ForecastOutcome{}, "single", err
	}

	switch {
	case cfg.MultiSelect && cfg.AdvancedMode:
		res, err := s.multi.ForecastThreeDimensions(ctx, cfg, obs)
		return models.ForecastOutcome{Multi: res}, "advanced", err
	case cfg.MultiSelect:
		dims := cfg.SelectedDimensions()
		if len(dims) < 2 {
			return models.ForecastOutcome{}, "multi", models.NewDomainError(models.ErrInvalidSelection, "Multi-select mode requires at least 2 dimensions")
		}
		if len(dims) == 3 {
			res, err := s.multi.ForecastThreeDimensions(ctx, cfg, obs)
			return models.ForecastOutcome{Multi: res}, "advanced", err
		}
		res, err := s.multi.ForecastTwoDimensions(ctx, cfg, obs)
		return models.ForecastOutcome{Multi: res}, "two_dimension", err
	case len(cfg.SelectedItems) > 1:
		res, err := s.multi.ForecastItems(ctx, cfg, obs)
		return models.ForecastOutcome{Multi: res}, "items", err
	default:
		res, err := s.single(ctx, cfg)
		return models.ForecastOutcome{Single: res}, "single", err
	}
}

func (s *ForecastService) single(ctx context.Context, cfg models.ForecastConfig) (*models.ForecastResult, error) {
	recs, err := s.loader.Load(ctx, cfg.LoadFilter())
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, models.NewDomainError(models.ErrNoData, "No data found for the selected configuration")
	}
	series, err := aggregation.Aggregate(recs, cfg.IntervalValue())
	if err != nil {
		return nil, err
	}
	if series.Len() < 2 {
		return nil, models.NewDomainError(models.ErrInsufficientData, "Insufficient data for forecasting")
	}
	return s.engine.ForecastSeries(ctx, s.loader.WithFactors(ctx, series, cfg), cfg)
}

func (s *ForecastService) publish(ctx context.Context, hash string, cfg models.ForecastConfig, out models.ForecastOutcome) {
	if s.publisher == nil {
		return
	}
	ev := &models.ResultEvent{ConfigHash: hash, Algorithm: cfg.Algorithm, Timestamp: time.Now().Unix()}
	switch {
	case out.Single != nil:
		ev.SelectedAlgorithm = out.Single.SelectedAlgorithm
		ev.Accuracy = out.Single.Accuracy
		ev.Combinations = 1
	case out.Multi != nil:
		ev.Accuracy = out.Multi.Summary.AverageAccuracy
		ev.Combinations = out.Multi.TotalCombinations
		ev.Failed = out.Multi.Summary.FailedCombinations
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn("failed to publish forecast result", applogger.String("config_hash", hash), applogger.Error(err))
	}
}
