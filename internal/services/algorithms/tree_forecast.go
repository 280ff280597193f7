package algorithms

import (
	"math"
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/services/features"
)

const learnerSeed = 42

type forestParams struct {
	trees int
	depth int
}

func forestGrid() []forestParams {
	var out []forestParams
	for _, t := range []int{50, 100, 200} {
		for _, d := range []int{3, 5, 0} {
			out = append(out, forestParams{trees: t, depth: d})
		}
	}
	return out
}

type boostParams struct {
	estimators int
	rate       float64
	depth      int
}

func boostGrid() []boostParams {
	var out []boostParams
	for _, e := range []int{50, 100} {
		for _, r := range []float64{0.05, 0.1, 0.2} {
			for _, d := range []int{3, 4, 5} {
				out = append(out, boostParams{estimators: e, rate: r, depth: d})
			}
		}
	}
	return out
}

func forestRow(i int, date time.Time, lags []float64) []float64 {
	return append(lags, float64(i), float64(i%12), features.Month(date), features.Quarter(date))
}

func randomForest(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	w := features.Window(n, 5)
	sup := features.BuildSupervised(s, w, forestRow)
	if sup.Len() < 3 {
		return linearRegression(s, horizon)
	}
	last := s.LastDate()
	exog := s.LastExog()

	var (
		best     models.Metrics
		bestFc   []float64
		haveBest bool
	)
	for _, p := range forestGrid() {
		rf := fitRandomForest(sup.X, sup.Y, p.trees, treeParams{maxDepth: p.depth}, learnerSeed)
		fc := recursive(rf, y[n-w:], n, horizon, exog, func(idx, step int, lags []float64) []float64 {
			return forestRow(idx, features.NextMonth(last, step+1), lags)
		})
		m := CalculateMetrics(sup.Y, predictAll(rf, sup.X))
		if !haveBest || m.RMSE < best.RMSE {
			best, bestFc, haveBest = m, fc, true
		}
	}
	return bestFc, best, nil
}

// boostRow lays out lags, calendar features and the rolling mean/std of the
// three values before the target.
func boostRow(i int, date time.Time, lags []float64) []float64 {
	tail := lags
	if len(tail) > 3 {
		tail = tail[len(tail)-3:]
	}
	rm, rs := features.MeanStd(tail)
	if len(tail) < 2 {
		rs = 0
	}
	return append(lags,
		float64(i),
		features.Month(date),
		features.Quarter(date),
		math.Mod(features.DayOfYear(date), 7),
		float64(i%12),
		rm, rs,
	)
}

func xgboost(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	if n < 6 {
		return linearRegression(s, horizon)
	}
	w := features.Window(n, 4)
	sup := features.BuildSupervised(s, w, boostRow)
	if sup.Len() < 3 {
		return randomForest(s, horizon)
	}
	last := s.LastDate()
	exog := s.LastExog()

	var (
		best     models.Metrics
		bestFc   []float64
		haveBest bool
	)
	for _, p := range boostGrid() {
		gb := fitGradientBoosting(sup.X, sup.Y, p.estimators, p.rate, p.depth)
		fc := recursive(gb, y[n-w:], n, horizon, exog, func(idx, step int, lags []float64) []float64 {
			return boostRow(idx, features.NextMonth(last, step+1), lags)
		})
		if !finite(fc) {
			continue
		}
		m := CalculateMetrics(sup.Y, predictAll(gb, sup.X))
		if !haveBest || m.RMSE < best.RMSE {
			best, bestFc, haveBest = m, fc, true
		}
	}
	if !haveBest {
		return nil, models.Metrics{}, errNumeric
	}
	return bestFc, best, nil
}
