package algorithms

import (
	"DemandCast/internal/domain/models"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
)

const seasonLength = 12

// sesAlphas is the smoothing grid of exponentialSmoothing.
func sesAlphas() []float64 { return []float64{0.1, 0.3, 0.5} }

// sesFitted runs simple exponential smoothing and returns one-step-ahead
// fitted values together with the final level.
func sesFitted(y []float64, alpha float64) ([]float64, float64) {
	fitted := make([]float64, len(y))
	level := y[0]
	fitted[0] = level
	for t := 1; t < len(y); t++ {
		fitted[t] = level
		level = alpha*y[t] + (1-alpha)*level
	}
	return fitted, level
}

// smoothed returns the recursively smoothed series s[0]=x[0], s[t]=a*x[t]+(1-a)*s[t-1].
func smoothed(x []float64, alpha float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	out[0] = x[0]
	for t := 1; t < len(x); t++ {
		out[t] = alpha*x[t] + (1-alpha)*out[t-1]
	}
	return out
}

func exponentialSmoothing(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	var (
		best     models.Metrics
		bestFc   []float64
		haveBest bool
	)
	for _, a := range sesAlphas() {
		fitted, level := sesFitted(y, a)
		m := CalculateMetrics(y, fitted)
		if !haveBest || m.RMSE < best.RMSE {
			best, bestFc, haveBest = m, constant(clamp0(level), horizon), true
		}
	}
	return bestFc, best, nil
}

func holtWinters(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	if n < 2*seasonLength {
		return exponentialSmoothing(s, horizon)
	}
	const alpha, beta, gamma = 0.3, 0.1, 0.1

	level := mean(y[:seasonLength])
	tr := (mean(y[seasonLength:2*seasonLength]) - level) / seasonLength
	season := make([]float64, seasonLength)
	for i := range season {
		season[i] = y[i] - level
	}

	fitted := make([]float64, n)
	fitted[0] = level + tr + season[0]
	for i := 1; i < n; i++ {
		k := i % seasonLength
		prevL, prevT := level, tr
		level = alpha*(y[i]-season[k]) + (1-alpha)*(prevL+prevT)
		tr = beta*(level-prevL) + (1-beta)*prevT
		season[k] = gamma*(y[i]-level) + (1-gamma)*season[k]
		fitted[i] = level + tr + season[k]
	}

	fc := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		fc[h] = clamp0(level + float64(h+1)*tr + season[(n+h)%seasonLength])
	}
	return fc, CalculateMetrics(y, fitted), nil
}

func dampedTrend(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	if n < 3 {
		return exponentialSmoothing(s, horizon)
	}
	const alpha, beta, phi = 0.3, 0.1, 0.8

	level := y[0]
	tr := y[1] - y[0]
	fitted := make([]float64, n)
	fitted[0] = level + tr
	for i := 1; i < n; i++ {
		prevL, prevT := level, tr
		level = alpha*y[i] + (1-alpha)*(prevL+phi*prevT)
		tr = beta*(level-prevL) + (1-beta)*phi*prevT
		fitted[i] = level + tr
	}

	fc := make([]float64, horizon)
	damp, pow := 0.0, 1.0
	for h := 0; h < horizon; h++ {
		pow *= phi
		damp += pow
		fc[h] = clamp0(level + tr*damp)
	}
	return fc, CalculateMetrics(y[1:], fitted[1:]), nil
}

func thetaMethod(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	if n < 3 {
		return linearRegression(s, horizon)
	}
	const theta1, theta2, alpha = 0.0, 2.0, 0.3
	my := mean(y)
	line1 := make([]float64, n)
	line2 := make([]float64, n)
	for i, v := range y {
		line1[i] = my + (v-my)*theta1
		line2[i] = my + (v-my)*theta2
	}

	t := arange(0, n)
	slope, intercept := linregress(t, line1)
	sm := smoothed(line2, alpha)
	last := sm[n-1]

	fc := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		f1 := slope*float64(n+h) + intercept
		fc[h] = clamp0((f1 + last) / 2)
	}
	fitted := make([]float64, n)
	for i := range fitted {
		fitted[i] = (slope*t[i] + intercept + sm[i]) / 2
	}
	return fc, CalculateMetrics(y, fitted), nil
}

func croston(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	if n < 3 {
		return exponentialSmoothing(s, horizon)
	}
	var idx []int
	var sizes []float64
	for i, v := range y {
		if v > 0 {
			idx = append(idx, i)
			sizes = append(sizes, v)
		}
	}
	if len(idx) < 2 {
		return exponentialSmoothing(s, horizon)
	}
	intervals := make([]float64, len(idx)-1)
	for i := 1; i < len(idx); i++ {
		intervals[i-1] = float64(idx[i] - idx[i-1])
	}

	const alpha = 0.3
	sz := smoothed(sizes, alpha)
	iv := smoothed(intervals, alpha)
	rate := sz[len(sz)-1] / iv[len(iv)-1]

	avgInterval := mean(intervals)
	if avgInterval < 1 {
		avgInterval = 1
	}
	predicted := constant(mean(sizes)/avgInterval, n)
	return constant(clamp0(rate), horizon), CalculateMetrics(y, predicted), nil
}

// movingAverage forecasts the mean of the trailing window. The in-sample
// moving averages come from the indicator SMA, which only emits once a full
// window is available, matching the metric alignment y[w-1:].
func movingAverage(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	w := 3
	if len(y) < w {
		w = len(y)
	}
	sma := trend.NewSmaWithPeriod[float64](w)
	avg := helper.ChanToSlice(sma.Compute(helper.SliceToChan(y)))
	if len(avg) == 0 {
		return nil, models.Metrics{}, errNumeric
	}
	last := mean(y[len(y)-w:])
	return constant(clamp0(last), horizon), CalculateMetrics(y[w-1:], avg), nil
}

func naiveSeasonal(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	if n < 2 {
		return constant(clamp0(y[0]), horizon), models.Metrics{Accuracy: 50}, nil
	}
	season := seasonLength
	if n < season {
		season = n
	}
	fc := make([]float64, horizon)
	for i := range fc {
		k := (n + i) % season
		fc[i] = clamp0(y[n-(season-k)])
	}
	if n > season {
		return fc, CalculateMetrics(y[season:], y[:n-season]), nil
	}
	sd := popStd(y)
	return fc, models.Metrics{Accuracy: 60, MAE: sd, RMSE: sd}, nil
}

// centeredMean reproduces a 'same'-mode convolution with a flat window of
// width w: out[i] is the zero-padded sum of y[i-w/2 .. i+w/2-1] over w.
func centeredMean(y []float64, w int) []float64 {
	n := len(y)
	out := make([]float64, n)
	lo, hi := w/2, (w-1)/2
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := i - lo; j <= i+hi; j++ {
			if j >= 0 && j < n {
				sum += y[j]
			}
		}
		out[i] = sum / float64(w)
	}
	return out
}

func seasonalDecomposition(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	if n < 2*seasonLength {
		return linearRegression(s, horizon)
	}
	tr := centeredMean(y, seasonLength)
	pattern := make([]float64, seasonLength)
	for k := 0; k < seasonLength; k++ {
		sum, cnt := 0.0, 0
		for j := k; j < n; j += seasonLength {
			sum += y[j] - tr[j]
			cnt++
		}
		pattern[k] = sum / float64(cnt)
	}
	slope, intercept := linregress(arange(0, n), tr)

	fc := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		fc[h] = clamp0(slope*float64(n+h) + intercept + pattern[(n+h)%seasonLength])
	}
	fitted := make([]float64, n)
	for i := range fitted {
		fitted[i] = tr[i] + pattern[i%seasonLength]
	}
	return fc, CalculateMetrics(y, fitted), nil
}
