package algorithms

import (
	"math"
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/services/features"
)

func lstmLike(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	if n < 6 {
		return linearRegression(s, horizon)
	}
	w := features.Window(n, 5)
	sup := features.BuildSupervised(s, w, features.LagsOnly)
	if sup.Len() < 2 {
		return linearRegression(s, horizon)
	}
	net, err := fitMLP(sup.X, sup.Y, mlpConfig{hidden: []int{10, 5}, alpha: 0.01, maxIter: 500, seed: learnerSeed})
	if err != nil {
		return linearRegression(s, horizon)
	}
	fc := recursive(net, y[n-w:], n, horizon, s.LastExog(), func(_, _ int, lags []float64) []float64 {
		return lags
	})
	if !finite(fc) {
		return linearRegression(s, horizon)
	}
	return fc, CalculateMetrics(sup.Y, predictAll(net, sup.X)), nil
}

// seasonalRow scales the index by the series length and adds a yearly sine.
func seasonalRow(n int) features.RowFunc {
	return func(i int, _ time.Time, lags []float64) []float64 {
		return append(lags, float64(i)/float64(n), math.Sin(2*math.Pi*float64(i)/12))
	}
}

func neuralNetwork(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	if n < 6 {
		return linearRegression(s, horizon)
	}
	w := features.Window(n, 5)
	row := seasonalRow(n)
	sup := features.BuildSupervised(s, w, row)
	if sup.Len() < 3 {
		return linearRegression(s, horizon)
	}

	var grid []mlpConfig
	for _, h := range [][]int{{10}, {20, 10}} {
		for _, a := range []float64{0.001, 0.01} {
			grid = append(grid, mlpConfig{hidden: h, alpha: a, maxIter: 1000, seed: learnerSeed})
		}
	}
	cfg, ok := selectByCV(grid, sup.X, sup.Y, func(c mlpConfig, X [][]float64, y []float64) (predictor, error) {
		return fitMLP(X, y, c)
	})
	if !ok {
		return linearRegression(s, horizon)
	}
	net, err := fitMLP(sup.X, sup.Y, cfg)
	if err != nil {
		return linearRegression(s, horizon)
	}
	fc := recursive(net, y[n-w:], n, horizon, s.LastExog(), func(idx, _ int, lags []float64) []float64 {
		return row(idx, time.Time{}, lags)
	})
	if !finite(fc) {
		return linearRegression(s, horizon)
	}
	return fc, CalculateMetrics(sup.Y, predictAll(net, sup.X)), nil
}
