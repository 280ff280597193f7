package features

import (
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/pkg/util"

	"gonum.org/v1/gonum/stat"
)

// Window returns the lag window for a series of length n, capped at max.
// The result is n-1 when the series is too short for the full window and
// may be zero or negative for a single observation.
func Window(n, max int) int {
	if n-1 < max {
		return n - 1
	}
	return max
}

// RowFunc builds the non-exogenous part of a feature vector for target index
// i given the lag window that precedes it.
type RowFunc func(i int, date time.Time, lags []float64) []float64

// Supervised is a lag-window design matrix with its targets.
type Supervised struct {
	X [][]float64
	Y []float64
}

func (s Supervised) Len() int { return len(s.Y) }

// BuildSupervised slides a window of w observations over the series and emits
// one row per target y[i], i >= w. Exogenous values of point i are appended.
func BuildSupervised(s models.TimeSeries, w int, row RowFunc) Supervised {
	y := s.Quantities()
	out := Supervised{}
	if w < 0 {
		return out
	}
	for i := w; i < len(y); i++ {
		lags := append([]float64(nil), y[i-w:i]...)
		x := row(i, s.Points[i].PeriodStart, lags)
		x = append(x, s.ExogAt(i)...)
		out.X = append(out.X, x)
		out.Y = append(out.Y, y[i])
	}
	return out
}

// LagsThenIndex lays out [lags..., i].
func LagsThenIndex(i int, _ time.Time, lags []float64) []float64 {
	return append(lags, float64(i))
}

// IndexThenLags lays out [i, lags...].
func IndexThenLags(i int, _ time.Time, lags []float64) []float64 {
	return append([]float64{float64(i)}, lags...)
}

// LagsOnly lays out [lags...].
func LagsOnly(_ int, _ time.Time, lags []float64) []float64 {
	return lags
}

// Month returns the calendar month 1..12.
func Month(t time.Time) float64 { return float64(t.Month()) }

// Quarter returns the calendar quarter 1..4.
func Quarter(t time.Time) float64 { return float64((int(t.Month())-1)/3 + 1) }

// DayOfYear returns the ordinal day 1..366.
func DayOfYear(t time.Time) float64 { return float64(t.YearDay()) }

// NextMonth returns the date k months after t, the calendar step the tree
// learners use for future calendar features whatever the series interval.
func NextMonth(t time.Time, k int) time.Time { return util.AddMonths(t, k) }

// MeanStd returns the mean and population standard deviation of vals.
func MeanStd(vals []float64) (float64, float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(vals, nil)
}

// Standardizer z-normalises columns with population statistics. Columns with
// zero spread keep a unit scale.
type Standardizer struct {
	Mean []float64
	Std  []float64
}

// FitStandardizer computes column statistics of X.
func FitStandardizer(X [][]float64) Standardizer {
	if len(X) == 0 {
		return Standardizer{}
	}
	p := len(X[0])
	st := Standardizer{Mean: make([]float64, p), Std: make([]float64, p)}
	col := make([]float64, len(X))
	for j := 0; j < p; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		m, s := MeanStd(col)
		if s == 0 {
			s = 1
		}
		st.Mean[j], st.Std[j] = m, s
	}
	return st
}

// Transform returns a standardized copy of row.
func (st Standardizer) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - st.Mean[j]) / st.Std[j]
	}
	return out
}

// TransformAll standardizes every row of X.
func (st Standardizer) TransformAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, r := range X {
		out[i] = st.Transform(r)
	}
	return out
}
