package usecase

import (
	"context"
	"fmt"
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/services/aggregation"
	applogger "DemandCast/pkg/logger"
	"DemandCast/pkg/util"
)

// RecordQuerier loads raw records matching a filter.
type RecordQuerier interface {
	Query(ctx context.Context, f models.RecordFilter) ([]models.RawRecord, error)
}

// FactorSource loads external factor observations.
type FactorSource interface {
	Factors(ctx context.Context, names []string, from, to time.Time) ([]models.ExternalFactor, error)
}

// SeriesLoader fetches records and enriches aggregated series with external
// factors.
type SeriesLoader struct {
	records RecordQuerier
	factors FactorSource
	log     *applogger.Logger
}

// NewSeriesLoader creates a loader. factors may be nil, in which case
// requested external factors are ignored.
func NewSeriesLoader(records RecordQuerier, factors FactorSource, log *applogger.Logger) *SeriesLoader {
	return &SeriesLoader{records: records, factors: factors, log: log}
}

// Load queries records for f.
func (l *SeriesLoader) Load(ctx context.Context, f models.RecordFilter) ([]models.RawRecord, error) {
	recs, err := l.records.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return recs, nil
}

// WithFactors joins the configured external factors onto s. A factor lookup
// failure leaves s unchanged.
func (l *SeriesLoader) WithFactors(ctx context.Context, s models.TimeSeries, cfg models.ForecastConfig) models.TimeSeries {
	if l.factors == nil || len(cfg.ExternalFactors) == 0 || s.Len() == 0 {
		return s
	}
	from := s.Points[0].PeriodStart
	to := util.AddInterval(s.LastDate(), string(s.Interval), 1)
	rows, err := l.factors.Factors(ctx, cfg.ExternalFactors, from, to)
	if err != nil {
		l.log.Warn("failed to load external factors", applogger.Strings("factors", cfg.ExternalFactors), applogger.Error(err))
		return s
	}
	return aggregation.JoinFactors(s, rows, cfg.ExternalFactors)
}
