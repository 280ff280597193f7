package algorithms

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var errNumeric = errors.New("numeric failure")

// rcond below which singular values are treated as zero when solving least
// squares problems.
const rcond = 1e-12

// lstsq solves min ||A x - b|| returning the minimum-norm solution, which keeps
// rank-deficient designs (constant lags, repeated exog) well defined.
func lstsq(A [][]float64, b []float64) ([]float64, error) {
	r := len(A)
	if r == 0 {
		return nil, errNumeric
	}
	c := len(A[0])
	if c == 0 {
		return []float64{}, nil
	}
	data := make([]float64, 0, r*c)
	for _, row := range A {
		data = append(data, row...)
	}
	dense := mat.NewDense(r, c, data)
	var svd mat.SVD
	if ok := svd.Factorize(dense, mat.SVDThin); !ok {
		return nil, errNumeric
	}
	rank := svd.Rank(rcond)
	if rank == 0 {
		return make([]float64, c), nil
	}
	var x mat.VecDense
	svd.SolveVecTo(&x, mat.NewVecDense(r, append([]float64(nil), b...)), rank)
	out := make([]float64, c)
	for j := 0; j < c; j++ {
		out[j] = x.AtVec(j)
	}
	return out, nil
}

// linearModel is an ordinary least squares fit with intercept.
type linearModel struct {
	coef      []float64
	intercept float64
}

// fitOLS centers X and y, solves for the slopes, then recovers the intercept.
func fitOLS(X [][]float64, y []float64) (*linearModel, error) {
	n := len(X)
	if n == 0 || n != len(y) {
		return nil, errNumeric
	}
	p := len(X[0])
	xm := make([]float64, p)
	for _, row := range X {
		floats.Add(xm, row)
	}
	floats.Scale(1/float64(n), xm)
	ym := stat.Mean(y, nil)

	Xc := make([][]float64, n)
	yc := make([]float64, n)
	for i, row := range X {
		r := make([]float64, p)
		floats.SubTo(r, row, xm)
		Xc[i] = r
		yc[i] = y[i] - ym
	}
	coef, err := lstsq(Xc, yc)
	if err != nil {
		return nil, err
	}
	return &linearModel{coef: coef, intercept: ym - floats.Dot(xm, coef)}, nil
}

func (m *linearModel) predict(x []float64) float64 {
	return m.intercept + floats.Dot(m.coef, x)
}

func (m *linearModel) predictAll(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = m.predict(x)
	}
	return out
}

// linregress fits y = intercept + slope*x.
func linregress(x, y []float64) (slope, intercept float64) {
	if len(x) < 2 {
		if len(y) == 1 {
			return 0, y[0]
		}
		return 0, 0
	}
	intercept, slope = stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(slope) || math.IsNaN(intercept) {
		return 0, stat.Mean(y, nil)
	}
	return slope, intercept
}

// polyfit returns coefficients of the least squares polynomial of the given
// degree, lowest power first.
func polyfit(x, y []float64, degree int) ([]float64, error) {
	A := make([][]float64, len(x))
	for i, xi := range x {
		row := make([]float64, degree+1)
		v := 1.0
		for d := 0; d <= degree; d++ {
			row[d] = v
			v *= xi
		}
		A[i] = row
	}
	return lstsq(A, y)
}

func polyval(coef []float64, x float64) float64 {
	out := 0.0
	for d := len(coef) - 1; d >= 0; d-- {
		out = out*x + coef[d]
	}
	return out
}

// arange returns [from, from+1, ..., to).
func arange(from, to int) []float64 {
	if to <= from {
		return nil
	}
	out := make([]float64, to-from)
	for i := range out {
		out[i] = float64(from + i)
	}
	return out
}

func column(xs []float64) [][]float64 {
	out := make([][]float64, len(xs))
	for i, v := range xs {
		out[i] = []float64{v}
	}
	return out
}

// popStd is the population standard deviation.
func popStd(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	_, s := stat.PopMeanStdDev(x, nil)
	return s
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

func clamp0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func clampAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = clamp0(v)
	}
	return out
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func finite(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// withExog appends the exogenous row to a base feature vector without
// aliasing either input.
func withExog(base, exog []float64) []float64 {
	out := make([]float64, 0, len(base)+len(exog))
	out = append(out, base...)
	return append(out, exog...)
}

// kFold yields contiguous, unshuffled folds; the first n%k folds get one
// extra sample.
func kFold(n, k int) [][2]int {
	if k > n {
		k = n
	}
	out := make([][2]int, 0, k)
	start := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		out = append(out, [2]int{start, start + size})
		start += size
	}
	return out
}

// splitFold separates rows [lo, hi) as validation from the rest.
func splitFold(X [][]float64, y []float64, lo, hi int) (trX [][]float64, trY []float64, vaX [][]float64, vaY []float64) {
	for i := range X {
		if i >= lo && i < hi {
			vaX = append(vaX, X[i])
			vaY = append(vaY, y[i])
		} else {
			trX = append(trX, X[i])
			trY = append(trY, y[i])
		}
	}
	return
}

func mse(a, b []float64) float64 {
	if len(a) == 0 {
		return math.Inf(1)
	}
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s / float64(len(a))
}
