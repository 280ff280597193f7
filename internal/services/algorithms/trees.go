package algorithms

import (
	"math/rand"
	"sort"
)

// treeParams bounds the growth of a regression tree. maxDepth <= 0 means
// unlimited.
type treeParams struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
}

type treeNode struct {
	feature     int
	threshold   float64
	left, right int
	value       float64
	leaf        bool
}

// regressionTree is a CART tree minimising squared error.
type regressionTree struct {
	nodes []treeNode
}

func (t *regressionTree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.nodes[i]
		if n.leaf {
			return n.value
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

func fitTree(X [][]float64, y []float64, idx []int, p treeParams) *regressionTree {
	if p.minSamplesSplit < 2 {
		p.minSamplesSplit = 2
	}
	if p.minSamplesLeaf < 1 {
		p.minSamplesLeaf = 1
	}
	t := &regressionTree{}
	t.grow(X, y, idx, p, 0)
	return t
}

func (t *regressionTree) grow(X [][]float64, y []float64, idx []int, p treeParams, depth int) int {
	sum := 0.0
	for _, i := range idx {
		sum += y[i]
	}
	node := len(t.nodes)
	t.nodes = append(t.nodes, treeNode{leaf: true, value: sum / float64(len(idx))})

	if len(idx) < p.minSamplesSplit || (p.maxDepth > 0 && depth >= p.maxDepth) {
		return node
	}
	feat, thr, ok := bestSplit(X, y, idx, p.minSamplesLeaf)
	if !ok {
		return node
	}
	var left, right []int
	for _, i := range idx {
		if X[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := t.grow(X, y, left, p, depth+1)
	r := t.grow(X, y, right, p, depth+1)
	t.nodes[node] = treeNode{feature: feat, threshold: thr, left: l, right: r}
	return node
}

// bestSplit scans every feature for the threshold with the lowest summed
// child SSE. Ties keep the first feature scanned.
func bestSplit(X [][]float64, y []float64, idx []int, minLeaf int) (int, float64, bool) {
	n := len(idx)
	if n < 2 {
		return 0, 0, false
	}
	total, totalSq := 0.0, 0.0
	for _, i := range idx {
		total += y[i]
		totalSq += y[i] * y[i]
	}
	parent := totalSq - total*total/float64(n)
	bestGain := 1e-12 * (1 + parent)
	bestFeat, bestThr, found := 0, 0.0, false

	order := make([]int, n)
	for f := 0; f < len(X[idx[0]]); f++ {
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })
		ls, lsq := 0.0, 0.0
		for k := 0; k < n-1; k++ {
			v := y[order[k]]
			ls += v
			lsq += v * v
			lo, hi := X[order[k]][f], X[order[k+1]][f]
			if lo == hi {
				continue
			}
			nl, nr := k+1, n-k-1
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			rs, rsq := total-ls, totalSq-lsq
			sse := (lsq - ls*ls/float64(nl)) + (rsq - rs*rs/float64(nr))
			if gain := parent - sse; gain > bestGain {
				bestGain, bestFeat, bestThr, found = gain, f, (lo+hi)/2, true
			}
		}
	}
	return bestFeat, bestThr, found
}

// forest averages bootstrap-trained trees.
type forest struct {
	trees []*regressionTree
}

func fitRandomForest(X [][]float64, y []float64, nTrees int, p treeParams, seed int64) *forest {
	rng := rand.New(rand.NewSource(seed))
	n := len(y)
	rf := &forest{trees: make([]*regressionTree, 0, nTrees)}
	for t := 0; t < nTrees; t++ {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.Intn(n)
		}
		rf.trees = append(rf.trees, fitTree(X, y, sample, p))
	}
	return rf
}

func (rf *forest) predict(x []float64) float64 {
	sum := 0.0
	for _, t := range rf.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(rf.trees))
}

// boostedTrees is least-squares boosting of shallow trees from a mean
// baseline.
type boostedTrees struct {
	base  float64
	rate  float64
	trees []*regressionTree
}

func fitGradientBoosting(X [][]float64, y []float64, nEstimators int, rate float64, depth int) *boostedTrees {
	n := len(y)
	gb := &boostedTrees{base: mean(y), rate: rate}
	pred := constant(gb.base, n)
	resid := make([]float64, n)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for m := 0; m < nEstimators; m++ {
		for i := range resid {
			resid[i] = y[i] - pred[i]
		}
		t := fitTree(X, resid, idx, treeParams{maxDepth: depth})
		gb.trees = append(gb.trees, t)
		for i := range pred {
			pred[i] += rate * t.predict(X[i])
		}
	}
	return gb
}

func (gb *boostedTrees) predict(x []float64) float64 {
	v := gb.base
	for _, t := range gb.trees {
		v += gb.rate * t.predict(x)
	}
	return v
}
