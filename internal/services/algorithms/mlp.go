package algorithms

import (
	"math"
	"math/rand"

	"DemandCast/internal/services/features"

	"gonum.org/v1/gonum/floats"
)

type mlpConfig struct {
	hidden  []int
	alpha   float64
	maxIter int
	seed    int64
}

type layer struct {
	w [][]float64 // w[out][in]
	b []float64
}

// mlp is a ReLU perceptron with a linear output trained by full-batch Adam
// on standardized inputs and targets.
type mlp struct {
	layers []layer
	xs     features.Standardizer
	yMean  float64
	ySd    float64
}

func (m *mlp) forward(x []float64) [][]float64 {
	acts := [][]float64{x}
	cur := x
	for li, l := range m.layers {
		out := make([]float64, len(l.b))
		for o := range out {
			v := l.b[o] + floats.Dot(l.w[o], cur)
			if li < len(m.layers)-1 && v < 0 {
				v = 0
			}
			out[o] = v
		}
		acts = append(acts, out)
		cur = out
	}
	return acts
}

func (m *mlp) predict(x []float64) float64 {
	acts := m.forward(m.xs.Transform(x))
	return acts[len(acts)-1][0]*m.ySd + m.yMean
}

// fitMLP trains until maxIter epochs or ten epochs without a loss
// improvement of 1e-4.
func fitMLP(X [][]float64, y []float64, cfg mlpConfig) (*mlp, error) {
	n := len(y)
	if n == 0 || len(X[0]) == 0 {
		return nil, errNumeric
	}
	m := &mlp{xs: features.FitStandardizer(X)}
	m.yMean, m.ySd = features.MeanStd(y)
	if m.ySd == 0 {
		m.ySd = 1
	}
	Xs := m.xs.TransformAll(X)
	ys := make([]float64, n)
	for i, v := range y {
		ys[i] = (v - m.yMean) / m.ySd
	}

	rng := rand.New(rand.NewSource(cfg.seed))
	sizes := append([]int{len(X[0])}, cfg.hidden...)
	sizes = append(sizes, 1)
	for i := 0; i < len(sizes)-1; i++ {
		in, out := sizes[i], sizes[i+1]
		bound := math.Sqrt(6 / float64(in+out))
		l := layer{w: make([][]float64, out), b: make([]float64, out)}
		for o := 0; o < out; o++ {
			l.w[o] = make([]float64, in)
			for k := range l.w[o] {
				l.w[o][k] = (rng.Float64()*2 - 1) * bound
			}
			l.b[o] = (rng.Float64()*2 - 1) * bound
		}
		m.layers = append(m.layers, l)
	}

	opt := newAdam(m.layers)
	best, stall := math.Inf(1), 0
	for epoch := 0; epoch < cfg.maxIter; epoch++ {
		grads := zeroLike(m.layers)
		loss := 0.0
		for i, x := range Xs {
			acts := m.forward(x)
			out := acts[len(acts)-1][0]
			diff := out - ys[i]
			loss += diff * diff / 2
			delta := []float64{diff}
			for li := len(m.layers) - 1; li >= 0; li-- {
				l := m.layers[li]
				in := acts[li]
				for o := range l.b {
					grads[li].b[o] += delta[o]
					floats.AddScaled(grads[li].w[o], delta[o], in)
				}
				if li == 0 {
					break
				}
				prev := make([]float64, len(in))
				for o := range l.b {
					floats.AddScaled(prev, delta[o], l.w[o])
				}
				for k := range prev {
					if in[k] <= 0 {
						prev[k] = 0
					}
				}
				delta = prev
			}
		}
		penalty := 0.0
		for li, l := range m.layers {
			for o := range l.w {
				penalty += floats.Dot(l.w[o], l.w[o])
				for k := range grads[li].w[o] {
					grads[li].w[o][k] = grads[li].w[o][k]/float64(n) + cfg.alpha*l.w[o][k]/float64(n)
				}
				grads[li].b[o] /= float64(n)
			}
		}
		loss = (loss + cfg.alpha*penalty/2) / float64(n)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return nil, errNumeric
		}
		opt.step(m.layers, grads)

		if loss > best-1e-4 {
			stall++
			if stall >= 10 {
				break
			}
		} else {
			stall = 0
		}
		if loss < best {
			best = loss
		}
	}
	return m, nil
}

func zeroLike(ls []layer) []layer {
	out := make([]layer, len(ls))
	for i, l := range ls {
		out[i] = layer{w: make([][]float64, len(l.w)), b: make([]float64, len(l.b))}
		for o := range l.w {
			out[i].w[o] = make([]float64, len(l.w[o]))
		}
	}
	return out
}

type adam struct {
	m, v []layer
	t    int
}

const (
	adamRate  = 0.001
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-8
)

func newAdam(ls []layer) *adam {
	return &adam{m: zeroLike(ls), v: zeroLike(ls)}
}

func (a *adam) step(params, grads []layer) {
	a.t++
	c1 := 1 - math.Pow(adamBeta1, float64(a.t))
	c2 := 1 - math.Pow(adamBeta2, float64(a.t))
	rate := adamRate * math.Sqrt(c2) / c1
	upd := func(p *float64, g float64, m, v *float64) {
		*m = adamBeta1*(*m) + (1-adamBeta1)*g
		*v = adamBeta2*(*v) + (1-adamBeta2)*g*g
		*p -= rate * (*m) / (math.Sqrt(*v) + adamEps)
	}
	for li := range params {
		for o := range params[li].w {
			for k := range params[li].w[o] {
				upd(&params[li].w[o][k], grads[li].w[o][k], &a.m[li].w[o][k], &a.v[li].w[o][k])
			}
			upd(&params[li].b[o], grads[li].b[o], &a.m[li].b[o], &a.v[li].b[o])
		}
	}
}
