package service

import (
	"context"

	"DemandCast/internal/domain/models"
)

// Forecaster answers routed forecast requests.
type Forecaster interface {
	Forecast(ctx context.Context, cfg models.ForecastConfig) (models.ForecastOutcome, error)
}

// ProgressObserver is notified as each combination of a multi run completes.
// With more than one worker OnProgress is called from several goroutines.
type ProgressObserver interface {
	OnProgress(ev models.ProgressEvent)
}

// ProgressFunc adapts a function to ProgressObserver.
type ProgressFunc func(ev models.ProgressEvent)

func (f ProgressFunc) OnProgress(ev models.ProgressEvent) { f(ev) }
