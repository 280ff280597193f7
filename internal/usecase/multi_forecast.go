package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"DemandCast/internal/domain/models"
	domsvc "DemandCast/internal/domain/service"
	"DemandCast/internal/services/aggregation"
	"DemandCast/internal/services/algorithms"
	applogger "DemandCast/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const (
	msgNoItemForecasts        = "No valid forecasts could be generated for any item"
	msgNoCombinationForecasts = "No valid forecasts could be generated for any combination"
)

// MultiForecaster expands a multi-selection request into independent
// combinations and forecasts each one.
type MultiForecaster struct {
	engine  *Engine
	loader  *SeriesLoader
	workers int
	log     *applogger.Logger
}

// MultiOption configures a MultiForecaster.
type MultiOption func(*MultiForecaster)

// WithWorkers bounds how many combinations run at once. Values below one
// mean sequential.
func WithWorkers(n int) MultiOption {
	return func(m *MultiForecaster) {
		if n >= 1 {
			m.workers = n
		}
	}
}

// NewMultiForecaster creates an expander running one combination at a time
// unless WithWorkers says otherwise.
func NewMultiForecaster(engine *Engine, loader *SeriesLoader, log *applogger.Logger, opts ...MultiOption) *MultiForecaster {
	m := &MultiForecaster{engine: engine, loader: loader, workers: 1, log: log}
	for _, o := range opts {
		o(m)
	}
	return m
}

// combo is one unit of a multi run. key names it in failedDetails.
type combo struct {
	key         string
	combination models.Combination
	run         func(ctx context.Context) (*models.ForecastResult, error)
}

type comboOutcome struct {
	result *models.ForecastResult
	err    error
}

// ForecastItems runs one pipeline per selected item of forecastBy.
func (m *MultiForecaster) ForecastItems(ctx context.Context, cfg models.ForecastConfig, obs domsvc.ProgressObserver) (*models.MultiForecastResult, error) {
	combos := make([]combo, 0, len(cfg.SelectedItems))
	for _, item := range cfg.SelectedItems {
		item := item
		itemCfg := cfg.ForItem(item)
		combos = append(combos, combo{
			key:         item,
			combination: models.Combination{cfg.ForecastBy: item},
			run: func(ctx context.Context) (*models.ForecastResult, error) {
				recs, err := m.loader.Load(ctx, itemCfg.LoadFilter())
				if err != nil {
					return nil, err
				}
				if len(recs) == 0 {
					return nil, models.NewDomainError(models.ErrNoData, "No data found for the selected configuration")
				}
				s, err := aggregation.Aggregate(recs, itemCfg.IntervalValue())
				if err != nil {
					return nil, err
				}
				if s.Len() < 2 {
					return nil, models.NewDomainError(models.ErrInsufficientData, "Insufficient data")
				}
				return m.engine.ForecastSeries(ctx, m.loader.WithFactors(ctx, s, itemCfg), itemCfg)
			},
		})
	}
	return m.expand(ctx, combos, msgNoItemForecasts, obs)
}

// ForecastTwoDimensions loads every record of the two active dimensions once
// and runs one pipeline per value pair.
func (m *MultiForecaster) ForecastTwoDimensions(ctx context.Context, cfg models.ForecastConfig, obs domsvc.ProgressObserver) (*models.MultiForecastResult, error) {
	dims := cfg.SelectedDimensions()
	if len(dims) < 2 {
		return nil, models.NewDomainError(models.ErrInvalidSelection, "Multi-select mode requires at least 2 dimensions")
	}
	pair := pairFor(dims[0], dims[1])
	d1, d2 := pair.Dimensions()

	filter := models.RecordFilter{}
	setFilter(&filter, d1, cfg.SelectedValues(d1))
	setFilter(&filter, d2, cfg.SelectedValues(d2))
	recs, err := m.loader.Load(ctx, filter)
	if err != nil {
		return nil, err
	}

	narrowed := cfg.Narrowed()
	var combos []combo
	for _, a := range cfg.SelectedValues(d1) {
		for _, b := range cfg.SelectedValues(d2) {
			a, b := a, b
			combos = append(combos, combo{
				key:         fmt.Sprintf("%s: %s + %s", pair, a, b),
				combination: models.Combination{string(d1): a, string(d2): b},
				run: func(ctx context.Context) (*models.ForecastResult, error) {
					s, err := aggregation.AggregateTwoDimension(recs, narrowed.IntervalValue(), pair, a, b)
					if err != nil {
						return nil, err
					}
					if s.Len() < 2 {
						return nil, models.NewDomainError(models.ErrInsufficientData, "Insufficient data after aggregation")
					}
					return m.engine.ForecastSeries(ctx, m.loader.WithFactors(ctx, s, narrowed), narrowed)
				},
			})
		}
	}
	return m.expand(ctx, combos, msgNoCombinationForecasts, obs)
}

// ForecastThreeDimensions runs the Cartesian product of products, customers
// and locations, loading each triple separately.
func (m *MultiForecaster) ForecastThreeDimensions(ctx context.Context, cfg models.ForecastConfig, obs domsvc.ProgressObserver) (*models.MultiForecastResult, error) {
	if len(cfg.SelectedProducts) == 0 || len(cfg.SelectedCustomers) == 0 || len(cfg.SelectedLocations) == 0 {
		return nil, models.NewDomainError(models.ErrInvalidSelection, "Advanced mode requires selection of Products, Customers, and Locations")
	}
	narrowed := cfg.Narrowed()
	var combos []combo
	for _, p := range cfg.SelectedProducts {
		for _, c := range cfg.SelectedCustomers {
			for _, l := range cfg.SelectedLocations {
				p, c, l := p, c, l
				key := strings.Join([]string{p, c, l}, " + ")
				combos = append(combos, combo{
					key: key,
					combination: models.Combination{
						string(models.DimProduct):  p,
						string(models.DimCustomer): c,
						string(models.DimLocation): l,
					},
					run: func(ctx context.Context) (*models.ForecastResult, error) {
						recs, err := m.loader.Load(ctx, models.RecordFilter{
							Products:  []string{p},
							Customers: []string{c},
							Locations: []string{l},
						})
						if err != nil {
							return nil, err
						}
						if len(recs) == 0 {
							return nil, models.NewDomainError(models.ErrNoData, "No data found for combination: "+key)
						}
						s, err := aggregation.Aggregate(recs, narrowed.IntervalValue())
						if err != nil {
							return nil, err
						}
						if s.Len() < 2 {
							return nil, models.NewDomainError(models.ErrInsufficientData, "Insufficient data")
						}
						return m.engine.ForecastSeries(ctx, m.loader.WithFactors(ctx, s, narrowed), narrowed)
					},
				})
			}
		}
	}
	return m.expand(ctx, combos, msgNoCombinationForecasts, obs)
}

// expand runs combos on at most m.workers goroutines. Each combo writes only
// its own slot, so the output keeps input order whatever the completion
// order.
func (m *MultiForecaster) expand(ctx context.Context, combos []combo, emptyMsg string, obs domsvc.ProgressObserver) (*models.MultiForecastResult, error) {
	start := time.Now()
	outcomes := make([]comboOutcome, len(combos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i := range combos {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := runCombo(gctx, combos[i])
			outcomes[i] = comboOutcome{result: res, err: err}
			if obs != nil {
				obs.OnProgress(progressEvent(i, len(combos), combos[i], res, err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &models.MultiForecastResult{TotalCombinations: len(combos), Results: []models.ForecastResult{}}
	var failed []models.FailedDetail
	for i, o := range outcomes {
		if o.err != nil {
			failed = append(failed, models.FailedDetail{Combination: combos[i].key, Error: o.err.Error()})
			m.log.Warn("combination failed", applogger.String("combination", combos[i].key), applogger.Error(o.err))
			continue
		}
		out.Results = append(out.Results, *o.result)
	}
	if len(out.Results) == 0 {
		return nil, models.NewDomainError(models.ErrNoValidForecasts, emptyMsg)
	}
	out.Summary = summarize(out.Results, failed)

	m.log.Info("multi forecast completed",
		applogger.Int("combinations", len(combos)),
		applogger.Int("failed", len(failed)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// runCombo shields the expansion from a panicking combination.
func runCombo(ctx context.Context, c combo) (res *models.ForecastResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("combination %s: %v", c.key, p)
		}
	}()
	res, err = c.run(ctx)
	if err != nil {
		return nil, err
	}
	res.Combination = c.combination
	return res, nil
}

func progressEvent(i, total int, c combo, res *models.ForecastResult, err error) models.ProgressEvent {
	ev := models.ProgressEvent{Index: i, Total: total, Key: c.key, Combination: c.combination, Status: models.ProgressOK}
	if err != nil {
		ev.Status = models.ProgressFailed
		ev.Error = err.Error()
		return ev
	}
	ev.Accuracy = res.Accuracy
	return ev
}

// summarize scores the successful results. Best and worst are the first
// results reaching the extreme accuracy.
func summarize(results []models.ForecastResult, failed []models.FailedDetail) models.Summary {
	if failed == nil {
		failed = []models.FailedDetail{}
	}
	sum := 0.0
	best, worst := 0, 0
	for i, r := range results {
		sum += r.Accuracy
		if r.Accuracy > results[best].Accuracy {
			best = i
		}
		if r.Accuracy < results[worst].Accuracy {
			worst = i
		}
	}
	return models.Summary{
		AverageAccuracy:        algorithms.Round(sum/float64(len(results)), 2),
		BestCombination:        models.CombinationScore{Combination: results[best].Combination, Accuracy: results[best].Accuracy},
		WorstCombination:       models.CombinationScore{Combination: results[worst].Combination, Accuracy: results[worst].Accuracy},
		SuccessfulCombinations: len(results),
		FailedCombinations:     len(failed),
		FailedDetails:          failed,
	}
}

// pairFor maps two dimensions in product, customer, location order to their
// pair type.
func pairFor(a, b models.Dimension) aggregation.PairType {
	switch {
	case a == models.DimProduct && b == models.DimCustomer:
		return aggregation.ProductCustomer
	case a == models.DimProduct && b == models.DimLocation:
		return aggregation.ProductLocation
	default:
		return aggregation.CustomerLocation
	}
}

func setFilter(f *models.RecordFilter, d models.Dimension, vals []string) {
	switch d {
	case models.DimProduct:
		f.Products = vals
	case models.DimCustomer:
		f.Customers = vals
	case models.DimLocation:
		f.Locations = vals
	}
}
