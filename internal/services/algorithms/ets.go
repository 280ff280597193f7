package algorithms

import (
	"math"

	"DemandCast/internal/domain/models"

	"gonum.org/v1/gonum/optimize"
)

type component int

const (
	compNone component = iota
	compAdd
	compMul
)

type etsSpec struct {
	trend  component
	season component
	period int
}

// etsSpecs enumerates the candidate state space models for a series of the
// given length. Multiplicative components need strictly positive data and
// seasonal ones two full seasons.
func etsSpecs(n int, positive bool) []etsSpec {
	var out []etsSpec
	for _, period := range []int{0, 4, 6, 12} {
		for _, tr := range []component{compNone, compAdd, compMul} {
			for _, se := range []component{compNone, compAdd, compMul} {
				if (period == 0) != (se == compNone) {
					continue
				}
				if period > 0 && n < 2*period {
					continue
				}
				if (tr == compMul || se == compMul) && !positive {
					continue
				}
				if tr != compNone && n < 3 {
					continue
				}
				out = append(out, etsSpec{trend: tr, season: se, period: period})
			}
		}
	}
	return out
}

// params counts smoothing parameters plus initial states.
func (e etsSpec) params() int {
	k := 2
	if e.trend != compNone {
		k += 2
	}
	if e.season != compNone {
		k += 1 + e.period
	}
	return k
}

type etsState struct {
	level, trend float64
	season       []float64
}

func (e etsSpec) init(y []float64) etsState {
	st := etsState{level: y[0]}
	m := e.period
	if e.season != compNone {
		st.level = mean(y[:m])
	}
	switch e.trend {
	case compAdd:
		if e.season != compNone {
			st.trend = (mean(y[m:2*m]) - st.level) / float64(m)
		} else {
			st.trend = y[1] - y[0]
		}
	case compMul:
		if e.season != compNone {
			st.trend = math.Pow(mean(y[m:2*m])/st.level, 1/float64(m))
		} else {
			st.trend = y[1] / y[0]
		}
	}
	if e.season != compNone {
		st.season = make([]float64, m)
		for i := range st.season {
			if e.season == compAdd {
				st.season[i] = y[i] - st.level
			} else {
				st.season[i] = y[i] / st.level
			}
		}
	}
	return st
}

func (e etsSpec) base(st etsState, h float64) float64 {
	switch e.trend {
	case compAdd:
		return st.level + h*st.trend
	case compMul:
		return st.level * math.Pow(st.trend, h)
	}
	return st.level
}

func (e etsSpec) combine(b, s float64) float64 {
	switch e.season {
	case compAdd:
		return b + s
	case compMul:
		return b * s
	}
	return b
}

// run filters the series and returns the one-step fitted values and the
// final state. alpha, beta and gamma are already in (0, 1).
func (e etsSpec) run(y []float64, alpha, beta, gamma float64) ([]float64, etsState, bool) {
	st := e.init(y)
	fitted := make([]float64, len(y))
	for t, v := range y {
		b := e.base(st, 1)
		s := 0.0
		if e.season != compNone {
			s = st.season[t%e.period]
		}
		fitted[t] = e.combine(b, s)

		prevL := st.level
		switch e.season {
		case compAdd:
			st.level = alpha*(v-s) + (1-alpha)*b
		case compMul:
			if s <= 0 {
				return nil, st, false
			}
			st.level = alpha*(v/s) + (1-alpha)*b
		default:
			st.level = alpha*v + (1-alpha)*b
		}
		switch e.trend {
		case compAdd:
			st.trend = beta*(st.level-prevL) + (1-beta)*st.trend
		case compMul:
			if prevL <= 0 {
				return nil, st, false
			}
			st.trend = beta*(st.level/prevL) + (1-beta)*st.trend
		}
		switch e.season {
		case compAdd:
			st.season[t%e.period] = gamma*(v-b) + (1-gamma)*s
		case compMul:
			if b <= 0 {
				return nil, st, false
			}
			st.season[t%e.period] = gamma*(v/b) + (1-gamma)*s
		}
		if math.IsNaN(st.level) || math.IsInf(st.level, 0) {
			return nil, st, false
		}
	}
	return fitted, st, true
}

func (e etsSpec) forecast(st etsState, n, horizon int) []float64 {
	out := make([]float64, horizon)
	for h := 1; h <= horizon; h++ {
		s := 0.0
		if e.season != compNone {
			s = st.season[(n+h-1)%e.period]
		}
		out[h-1] = clamp0(e.combine(e.base(st, float64(h)), s))
	}
	return out
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func logit(p float64) float64 { return math.Log(p / (1 - p)) }

func bounded(x float64) float64 { return math.Min(0.9999, math.Max(0.0001, sigmoid(x))) }

// smoothing maps unconstrained optimiser coordinates onto alpha in (0,1),
// beta below alpha and gamma below 1-alpha.
func (e etsSpec) smoothing(x []float64) (alpha, beta, gamma float64) {
	alpha = bounded(x[0])
	i := 1
	if e.trend != compNone {
		beta = bounded(x[i]) * alpha
		i++
	}
	if e.season != compNone {
		gamma = bounded(x[i]) * (1 - alpha)
	}
	return alpha, beta, gamma
}

func (e etsSpec) dims() int {
	d := 1
	if e.trend != compNone {
		d++
	}
	if e.season != compNone {
		d++
	}
	return d
}

func sse(y, fitted []float64) float64 {
	s := 0.0
	for i := range y {
		d := y[i] - fitted[i]
		s += d * d
	}
	return s
}

type etsFit struct {
	spec   etsSpec
	fitted []float64
	state  etsState
	aic    float64
}

// fitETS seeds Nelder-Mead from the best point of a coarse grid and keeps
// whichever of the two has the lower SSE.
func fitETS(y []float64, e etsSpec) (etsFit, bool) {
	objective := func(x []float64) float64 {
		a, b, g := e.smoothing(x)
		fitted, _, ok := e.run(y, a, b, g)
		if !ok {
			return math.Inf(1)
		}
		v := sse(y, fitted)
		if math.IsNaN(v) {
			return math.Inf(1)
		}
		return v
	}

	coarse := []float64{0.1, 0.3, 0.5, 0.8}
	d := e.dims()
	var (
		bestX []float64
		bestF = math.Inf(1)
	)
	var walk func(prefix []float64)
	walk = func(prefix []float64) {
		if len(prefix) == d {
			if f := objective(prefix); f < bestF {
				bestF, bestX = f, append([]float64(nil), prefix...)
			}
			return
		}
		for _, p := range coarse {
			walk(append(prefix, logit(p)))
		}
	}
	walk(make([]float64, 0, d))
	if bestX == nil {
		return etsFit{}, false
	}

	res, err := optimize.Minimize(optimize.Problem{Func: objective}, bestX,
		&optimize.Settings{FuncEvaluations: 200 * d}, &optimize.NelderMead{})
	if err == nil && res != nil && res.F < bestF {
		bestX, bestF = res.X, res.F
	}

	a, b, g := e.smoothing(bestX)
	fitted, st, ok := e.run(y, a, b, g)
	if !ok {
		return etsFit{}, false
	}
	n := float64(len(y))
	aic := n*math.Log(math.Max(bestF, 1e-12)/n) + 2*float64(e.params())
	return etsFit{spec: e, fitted: fitted, state: st, aic: aic}, true
}

func ses(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	y := s.Quantities()
	n := len(y)
	if n < 2 {
		return constant(clamp0(y[0]), horizon), models.Metrics{Accuracy: 50}, nil
	}
	positive := true
	for _, v := range y {
		if v <= 0 {
			positive = false
			break
		}
	}

	var (
		best  etsFit
		found bool
	)
	for _, spec := range etsSpecs(n, positive) {
		f, ok := fitETS(y, spec)
		if !ok {
			continue
		}
		if !found || f.aic < best.aic {
			best, found = f, true
		}
	}
	if !found {
		return exponentialSmoothing(s, horizon)
	}
	fc := best.spec.forecast(best.state, n, horizon)
	if !finite(fc) {
		return exponentialSmoothing(s, horizon)
	}
	return fc, CalculateMetrics(y, best.fitted), nil
}
