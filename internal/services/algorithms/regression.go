package algorithms

import (
	"math"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/services/features"
)

// predictor is any fitted model that maps a feature vector to a value.
type predictor interface {
	predict(x []float64) float64
}

func predictAll(p predictor, X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = p.predict(x)
	}
	return out
}

// rowAt builds the non-lag part of a future feature vector for absolute
// index idx (n+step).
type rowAt func(idx, step int, lags []float64) []float64

// recursive rolls each clamped prediction into the lag window for the next
// step. Exogenous values stay at their last observation.
func recursive(p predictor, seed []float64, n, horizon int, exog []float64, row rowAt) []float64 {
	window := append([]float64(nil), seed...)
	out := make([]float64, horizon)
	for step := 0; step < horizon; step++ {
		x := withExog(row(n+step, step, append([]float64(nil), window...)), exog)
		v := clamp0(p.predict(x))
		out[step] = v
		if len(window) > 0 {
			window = append(window[1:], v)
		}
	}
	return out
}

// indexExogDesign is the fallback design [i, exog_i...] used when a series
// is too short for a lag window.
func indexExogDesign(s models.TimeSeries) [][]float64 {
	X := make([][]float64, s.Len())
	for i := range X {
		X[i] = withExog([]float64{float64(i)}, s.ExogAt(i))
	}
	return X
}

func linearRegression(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	w := features.Window(n, 5)
	exog := s.LastExog()

	if w < 1 {
		X := indexExogDesign(s)
		m, err := fitOLS(X, y)
		if err != nil {
			return nil, models.Metrics{}, err
		}
		fc := make([]float64, horizon)
		for h := range fc {
			fc[h] = clamp0(m.predict(withExog([]float64{float64(n + h)}, exog)))
		}
		return fc, CalculateMetrics(y, m.predictAll(X)), nil
	}

	sup := features.BuildSupervised(s, w, features.LagsThenIndex)
	m, err := fitOLS(sup.X, sup.Y)
	if err != nil {
		return nil, models.Metrics{}, err
	}
	fc := recursive(m, y[n-w:], n, horizon, exog, func(idx, _ int, lags []float64) []float64 {
		return append(lags, float64(idx))
	})
	return fc, CalculateMetrics(sup.Y, m.predictAll(sup.X)), nil
}

func polynomialRegression(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	w := features.Window(n, 5)
	target := y
	if w >= 1 {
		target = y[w:]
	}
	m := len(target)
	x := arange(0, m)

	var (
		best     models.Metrics
		bestFc   []float64
		haveBest bool
	)
	for _, degree := range []int{2, 3} {
		coef, err := polyfit(x, target, degree)
		if err != nil {
			continue
		}
		fc := make([]float64, horizon)
		for h := range fc {
			fc[h] = clamp0(polyval(coef, float64(m+h)))
		}
		fitted := make([]float64, m)
		for i := range fitted {
			fitted[i] = polyval(coef, x[i])
		}
		met := CalculateMetrics(target, fitted)
		if !haveBest || met.RMSE < best.RMSE {
			best, bestFc, haveBest = met, fc, true
		}
	}
	if !haveBest {
		return nil, models.Metrics{}, errNumeric
	}
	return bestFc, best, nil
}

// ar1 fits x[t] = a + b*x[t-1] on the given series.
func ar1(x []float64) (*linearModel, error) {
	return fitOLS(column(x[:len(x)-1]), x[1:])
}

func arima(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	if n < 3 {
		return exponentialSmoothing(s, horizon)
	}
	m, err := ar1(y)
	if err != nil {
		return nil, models.Metrics{}, err
	}
	fc := make([]float64, horizon)
	last := y[n-1]
	for h := range fc {
		last = clamp0(m.predict([]float64{last}))
		fc[h] = last
	}
	return fc, CalculateMetrics(y[1:], m.predictAll(column(y[:n-1]))), nil
}

// sarima differences the series seasonally and then once more, fits AR(1) on
// the result, and integrates predictions back onto the last observed season.
func sarima(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	if n < 2*seasonLength {
		return arima(s, horizon)
	}
	season := seasonLength
	if n/2 < season {
		season = n / 2
	}
	sd := make([]float64, n-season)
	for i := range sd {
		sd[i] = y[i+season] - y[i]
	}
	rd := sd
	if len(sd) > 1 {
		rd = make([]float64, len(sd)-1)
		for i := range rd {
			rd[i] = sd[i+1] - sd[i]
		}
	}
	if len(rd) < 2 {
		return arima(s, horizon)
	}
	m, err := ar1(rd)
	if err != nil {
		return nil, models.Metrics{}, err
	}

	fc := make([]float64, horizon)
	lastDiff := rd[len(rd)-1]
	lastSD := sd[len(sd)-1]
	for i := range fc {
		next := m.predict([]float64{lastDiff})
		nextSD := lastSD + next
		base := y[n-(season-i%season)]
		fc[i] = clamp0(base + nextSD)
		lastDiff, lastSD = next, nextSD
	}
	return fc, CalculateMetrics(rd[1:], m.predictAll(column(rd[:len(rd)-1]))), nil
}

func driftMethod(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	if n < 2 {
		return constant(clamp0(y[0]), horizon), models.Metrics{Accuracy: 50}, nil
	}
	t := arange(0, n)
	slope, intercept := linregress(t, y)
	fc := make([]float64, horizon)
	for h := range fc {
		fc[h] = clamp0(slope*float64(n+h) + intercept)
	}
	fitted := make([]float64, n)
	for i := range fitted {
		fitted[i] = slope*t[i] + intercept
	}
	return fc, CalculateMetrics(y, fitted), nil
}

// fourier evaluates the harmonic component at time t. Yearly harmonics are
// active from 12 observations, weekly ones from 52.
func fourier(t float64, n int, sd float64) float64 {
	v := 0.0
	if n >= 12 {
		for i := 1; i <= 3; i++ {
			amp := sd / float64(i*2)
			arg := 2 * math.Pi * float64(i) * t / 12
			v += math.Sin(arg)*amp + math.Cos(arg)*amp
		}
	}
	if n >= 52 {
		for i := 1; i <= 2; i++ {
			v += math.Sin(2*math.Pi*float64(i)*t/52) * (sd / float64(i*4))
		}
	}
	return v
}

func prophetLike(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	if n < 4 {
		return linearRegression(s, horizon)
	}
	t := arange(0, n)
	slope, intercept := linregress(t, y)
	sd := popStd(y)

	fitted := make([]float64, n)
	for i := range fitted {
		fitted[i] = slope*t[i] + intercept + fourier(t[i], n, sd)
	}
	fc := make([]float64, horizon)
	for h := range fc {
		ft := float64(n + h)
		fc[h] = clamp0(slope*ft + intercept + fourier(ft, n, sd))
	}
	return fc, CalculateMetrics(y, fitted), nil
}
