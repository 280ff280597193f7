package algorithms

import (
	"math"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/services/features"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const cvFolds = 3

// scaled standardizes feature vectors before handing them to the wrapped
// model, so recursive forecasting can feed raw rows.
type scaled struct {
	st    features.Standardizer
	inner predictor
}

func (s scaled) predict(x []float64) float64 { return s.inner.predict(s.st.Transform(x)) }

// cvScore is the mean validation MSE over contiguous folds. With fewer samples
// than folds the model is scored on its own training data.
func cvScore(X [][]float64, y []float64, fit func(X [][]float64, y []float64) (predictor, error)) float64 {
	if len(y) < cvFolds {
		p, err := fit(X, y)
		if err != nil {
			return math.Inf(1)
		}
		return mse(y, predictAll(p, X))
	}
	total := 0.0
	for _, f := range kFold(len(y), cvFolds) {
		trX, trY, vaX, vaY := splitFold(X, y, f[0], f[1])
		p, err := fit(trX, trY)
		if err != nil {
			return math.Inf(1)
		}
		v := mse(vaY, predictAll(p, vaX))
		if math.IsNaN(v) {
			return math.Inf(1)
		}
		total += v
	}
	return total / cvFolds
}

// selectByCV returns the first grid entry with the lowest CV score.
func selectByCV[P any](grid []P, X [][]float64, y []float64, fit func(P, [][]float64, []float64) (predictor, error)) (P, bool) {
	var (
		best  P
		score = math.Inf(1)
		found bool
	)
	for _, g := range grid {
		s := cvScore(X, y, func(X [][]float64, y []float64) (predictor, error) { return fit(g, X, y) })
		if s < score {
			best, score, found = g, s, true
		}
	}
	return best, found
}

func rbf(a, b []float64, gamma float64) float64 {
	d := 0.0
	for i := range a {
		t := a[i] - b[i]
		d += t * t
	}
	return math.Exp(-gamma * d)
}

// svrModel is an RBF epsilon-SVR with the bias folded into the kernel.
type svrModel struct {
	sv    [][]float64
	beta  []float64
	gamma float64
}

func (m *svrModel) predict(x []float64) float64 {
	v := 0.0
	for i, s := range m.sv {
		v += m.beta[i] * (rbf(s, x, m.gamma) + 1)
	}
	return v
}

// fitSVR solves the epsilon-insensitive dual by coordinate descent with box
// constraint [-C, C].
func fitSVR(X [][]float64, y []float64, C, eps, gamma float64) *svrModel {
	n := len(y)
	K := make([][]float64, n)
	for i := range K {
		K[i] = make([]float64, n)
		for j := range K[i] {
			K[i][j] = rbf(X[i], X[j], gamma) + 1
		}
	}
	beta := make([]float64, n)
	f := make([]float64, n)
	for iter := 0; iter < 1000; iter++ {
		maxDelta := 0.0
		for i := 0; i < n; i++ {
			kii := K[i][i]
			u := beta[i]*kii - (f[i] - y[i])
			b := 0.0
			if math.Abs(u) > eps {
				b = math.Copysign(math.Abs(u)-eps, u) / kii
			}
			b = math.Max(-C, math.Min(C, b))
			delta := b - beta[i]
			if delta == 0 {
				continue
			}
			beta[i] = b
			for j := 0; j < n; j++ {
				f[j] += delta * K[i][j]
			}
			if a := math.Abs(delta); a > maxDelta {
				maxDelta = a
			}
		}
		if maxDelta < 1e-6 {
			break
		}
	}
	return &svrModel{sv: X, beta: beta, gamma: gamma}
}

// scaleGamma is 1 / (features * variance of X).
func scaleGamma(X [][]float64) float64 {
	var all []float64
	for _, r := range X {
		all = append(all, r...)
	}
	_, sd := features.MeanStd(all)
	v := sd * sd
	if v == 0 || len(X) == 0 {
		return 1
	}
	return 1 / (float64(len(X[0])) * v)
}

type svrParams struct {
	c, eps float64
}

func svr(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	if n < 4 {
		return linearRegression(s, horizon)
	}
	w := features.Window(n, 3)
	sup := features.BuildSupervised(s, w, features.IndexThenLags)
	if sup.Len() < 2 {
		return linearRegression(s, horizon)
	}
	st := features.FitStandardizer(sup.X)
	Xs := st.TransformAll(sup.X)
	gamma := scaleGamma(Xs)

	grid := []svrParams{{1, 0.1}, {1, 0.2}, {10, 0.1}, {10, 0.2}, {100, 0.1}, {100, 0.2}}
	p, ok := selectByCV(grid, Xs, sup.Y, func(p svrParams, X [][]float64, y []float64) (predictor, error) {
		return fitSVR(X, y, p.c, p.eps, gamma), nil
	})
	if !ok {
		p = grid[0]
	}

	model := scaled{st: st, inner: fitSVR(Xs, sup.Y, p.c, p.eps, gamma)}
	fc := recursive(model, y[n-w:], n, horizon, s.LastExog(), func(idx, _ int, lags []float64) []float64 {
		return append([]float64{float64(idx)}, lags...)
	})
	return fc, CalculateMetrics(sup.Y, predictAll(model, sup.X)), nil
}

// knnModel averages the k nearest targets weighted by inverse distance.
// Exact matches take the plain mean of the matching targets.
type knnModel struct {
	X [][]float64
	y []float64
	k int
}

func (m *knnModel) predict(x []float64) float64 {
	type nb struct {
		d float64
		i int
	}
	nbs := make([]nb, len(m.X))
	for i, r := range m.X {
		nbs[i] = nb{d: floats.Distance(r, x, 2), i: i}
	}
	// partial selection sort keeps ties in training order
	k := m.k
	if k > len(nbs) {
		k = len(nbs)
	}
	for a := 0; a < k; a++ {
		j := a
		for b := a + 1; b < len(nbs); b++ {
			if nbs[b].d < nbs[j].d {
				j = b
			}
		}
		nbs[a], nbs[j] = nbs[j], nbs[a]
	}
	exact, exactN := 0.0, 0
	for _, v := range nbs[:k] {
		if v.d == 0 {
			exact += m.y[v.i]
			exactN++
		}
	}
	if exactN > 0 {
		return exact / float64(exactN)
	}
	num, den := 0.0, 0.0
	for _, v := range nbs[:k] {
		w := 1 / v.d
		num += w * m.y[v.i]
		den += w
	}
	return num / den
}

func fitKNN(X [][]float64, y []float64, k int) (*knnModel, error) {
	if len(y) == 0 {
		return nil, errNumeric
	}
	if k > len(y) {
		k = len(y)
	}
	return &knnModel{X: X, y: y, k: k}, nil
}

func knn(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	if n < 6 {
		return linearRegression(s, horizon)
	}
	w := features.Window(n, 4)
	sup := features.BuildSupervised(s, w, features.LagsOnly)
	if sup.Len() < 3 {
		return linearRegression(s, horizon)
	}
	k, ok := selectByCV([]int{7, 10}, sup.X, sup.Y, func(k int, X [][]float64, y []float64) (predictor, error) {
		return fitKNN(X, y, k)
	})
	if !ok {
		k = 7
	}
	model, err := fitKNN(sup.X, sup.Y, k)
	if err != nil {
		return nil, models.Metrics{}, err
	}
	fc := recursive(model, y[n-w:], n, horizon, s.LastExog(), func(_, _ int, lags []float64) []float64 {
		return lags
	})
	return fc, CalculateMetrics(sup.Y, predictAll(model, sup.X)), nil
}

// gpModel is the posterior mean of a constant*RBF Gaussian process on a
// single input with normalised targets.
type gpModel struct {
	x          []float64
	alpha      []float64
	c, length  float64
	yMean, ySd float64
}

func (m *gpModel) kernel(a, b float64) float64 {
	d := (a - b) / m.length
	return m.c * math.Exp(-0.5*d*d)
}

func (m *gpModel) predict(x []float64) float64 {
	v := 0.0
	for i, xi := range m.x {
		v += m.kernel(x[0], xi) * m.alpha[i]
	}
	return v*m.ySd + m.yMean
}

const gpNoise = 1e-6

func fitGP(x, y []float64, c, length float64) (*gpModel, error) {
	n := len(x)
	if n == 0 {
		return nil, errNumeric
	}
	ym, ysd := features.MeanStd(y)
	if ysd == 0 {
		ysd = 1
	}
	m := &gpModel{x: x, c: c, length: length, yMean: ym, ySd: ysd}

	K := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := m.kernel(x[i], x[j])
			if i == j {
				v += gpNoise
			}
			K.SetSym(i, j, v)
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(K); !ok {
		return nil, errNumeric
	}
	yn := make([]float64, n)
	for i, v := range y {
		yn[i] = (v - ym) / ysd
	}
	var a mat.VecDense
	if err := chol.SolveVecTo(&a, mat.NewVecDense(n, yn)); err != nil {
		return nil, errNumeric
	}
	m.alpha = make([]float64, n)
	for i := range m.alpha {
		m.alpha[i] = a.AtVec(i)
	}
	return m, nil
}

type gpParams struct {
	c, length float64
}

func gaussianProcess(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	if n < 4 {
		return linearRegression(s, horizon)
	}
	idx := arange(0, n)
	im, isd := features.MeanStd(idx)
	xs := make([]float64, n)
	for i, v := range idx {
		xs[i] = (v - im) / isd
	}
	X := column(xs)

	var grid []gpParams
	for _, c := range []float64{0.1, 1, 10} {
		for _, l := range []float64{0.1, 1, 10} {
			grid = append(grid, gpParams{c, l})
		}
	}
	fit := func(p gpParams, X [][]float64, y []float64) (predictor, error) {
		x := make([]float64, len(X))
		for i, r := range X {
			x[i] = r[0]
		}
		return fitGP(x, y, p.c, p.length)
	}
	p, ok := selectByCV(grid, X, y, fit)
	if !ok {
		return linearRegression(s, horizon)
	}
	model, err := fit(p, X, y)
	if err != nil {
		return linearRegression(s, horizon)
	}

	fc := make([]float64, horizon)
	for h := range fc {
		fc[h] = clamp0(model.predict([]float64{(float64(n+h) - im) / isd}))
	}
	if !finite(fc) {
		return linearRegression(s, horizon)
	}
	return fc, CalculateMetrics(y, predictAll(model, X)), nil
}
