package usecase

import (
	"context"
	"sort"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/services/algorithms"
	applogger "DemandCast/pkg/logger"
)

// EnsembleName labels the averaged top-three result.
const EnsembleName = "Ensemble (Top 3 Avg)"

const ensembleSize = 3

// BestFitSelector sweeps the whole catalog and keeps the most accurate
// algorithm, adding an ensemble of the top three to the listing.
type BestFitSelector struct {
	runner *ForecastRunner
	log    *applogger.Logger
}

// NewBestFitSelector creates a selector that runs algorithms through runner.
func NewBestFitSelector(runner *ForecastRunner, log *applogger.Logger) *BestFitSelector {
	return &BestFitSelector{runner: runner, log: log}
}

// Select runs every catalog algorithm sequentially without cache writes. The
// primary result is the first one with the highest accuracy. When persist is
// set the winner is saved under best_fit with its own metrics.
func (b *BestFitSelector) Select(ctx context.Context, s models.TimeSeries, cfg models.ForecastConfig, persist bool) (*models.ForecastResult, error) {
	ids := algorithms.Sweep()
	results := make([]models.AlgorithmResult, 0, len(ids)+1)
	bestIdx := -1
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := b.runner.Run(ctx, id, s, cfg, false)
		results = append(results, r)
		if bestIdx < 0 || r.Accuracy > results[bestIdx].Accuracy {
			bestIdx = len(results) - 1
		}
	}
	best := results[bestIdx]
	bestID := ids[bestIdx]

	if ens, ok := Ensemble(results); ok {
		results = append(results, ens)
	}

	if persist {
		fc := make([]float64, len(best.ForecastData))
		for i, p := range best.ForecastData {
			fc[i] = p.Quantity
		}
		artifact := &models.ModelArtifact{
			Forecast: fc,
			Horizon:  cfg.ForecastPeriod,
			LastDate: s.LastDate().Format(models.DateLayout),
			Interval: s.Interval,
		}
		m := models.Metrics{Accuracy: best.Accuracy, MAE: best.MAE, RMSE: best.RMSE}
		meta := models.ModelMeta{"data_points": s.Len(), "best_algorithm": string(bestID)}
		if err := b.runner.cache.SaveModel(ctx, artifact, string(algorithms.BestFit), cfg, s.TrainingData(), m, meta); err != nil {
			b.log.Warn("failed to save best fit model", applogger.String("best_algorithm", string(bestID)), applogger.Error(err))
		}
	}

	out := models.NewForecastResult(best)
	out.SelectedAlgorithm = best.Algorithm + " (Best Fit)"
	out.AllAlgorithms = results
	return out, nil
}

// Ensemble averages the three most accurate results point by point. The
// ordering is stable, so equal accuracies keep catalog order. Degraded
// results are not ranked. Fewer than two usable results yield no ensemble.
func Ensemble(results []models.AlgorithmResult) (models.AlgorithmResult, bool) {
	ranked := make([]models.AlgorithmResult, 0, len(results))
	for _, r := range results {
		if !degraded(r) {
			ranked = append(ranked, r)
		}
	}
	if len(ranked) < 2 {
		return models.AlgorithmResult{}, false
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Accuracy > ranked[j].Accuracy })
	top := ranked
	if len(top) > ensembleSize {
		top = top[:ensembleSize]
	}

	lead := top[0]
	forecast := make([]models.DataPoint, len(lead.ForecastData))
	for i, p := range lead.ForecastData {
		sum, n := 0.0, 0
		for _, r := range top {
			if i < len(r.ForecastData) {
				sum += r.ForecastData[i].Quantity
				n++
			}
		}
		forecast[i] = models.DataPoint{Date: p.Date, Period: p.Period, Quantity: sum / float64(n)}
	}

	var acc, mae, rmse float64
	for _, r := range top {
		acc += r.Accuracy
		mae += r.MAE
		rmse += r.RMSE
	}
	k := float64(len(top))
	m := algorithms.RoundMetrics(models.Metrics{Accuracy: acc / k, MAE: mae / k, RMSE: rmse / k})
	return models.AlgorithmResult{
		Algorithm:    EnsembleName,
		Accuracy:     m.Accuracy,
		MAE:          m.MAE,
		RMSE:         m.RMSE,
		HistoricData: lead.HistoricData,
		ForecastData: forecast,
		Trend:        lead.Trend,
	}, true
}
