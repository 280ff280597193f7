package usecase

import (
	"context"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/services/algorithms"
)

// Engine forecasts one prepared series with either a single algorithm or the
// best-fit sweep.
type Engine struct {
	runner   *ForecastRunner
	selector *BestFitSelector
}

// NewEngine wires the runner and selector together.
func NewEngine(runner *ForecastRunner, selector *BestFitSelector) *Engine {
	return &Engine{runner: runner, selector: selector}
}

// ForecastSeries dispatches on cfg.Algorithm.
func (e *Engine) ForecastSeries(ctx context.Context, s models.TimeSeries, cfg models.ForecastConfig) (*models.ForecastResult, error) {
	id, err := algorithms.Parse(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if s.Len() < 2 {
		return nil, models.NewDomainError(models.ErrInsufficientData, "Insufficient data for forecasting")
	}
	if id == algorithms.BestFit {
		return e.selector.Select(ctx, s, cfg, true)
	}
	res := e.runner.Run(ctx, id, s, cfg, true)
	return models.NewForecastResult(res), nil
}
