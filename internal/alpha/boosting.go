package alpha

import (
	"math"
	"sort"
)

// stump is a one-split regression tree.
type stump struct {
	feature   int
	threshold float64
	left      float64 // x <= threshold
	right     float64
}

func (s stump) predict(x []float64) float64 {
	if x[s.feature] <= s.threshold {
		return s.left
	}
	return s.right
}

// Boosting is gradient-boosted decision stumps on log loss.
type Boosting struct {
	Rounds       int
	LearningRate float64
	MinLeaf      int

	base   float64
	stumps []stump
	gain   []float64
}

func NewBoosting() *Boosting {
	return &Boosting{Rounds: 200, LearningRate: 0.1, MinLeaf: 5}
}

func (b *Boosting) Name() string { return "boosting" }
func (b *Boosting) Output() Output { return OutputProbability }
func (b *Boosting) Signal(score float64) bool { return OutputProbability.Signal(score) }
func (b *Boosting) Importances() []float64 { return normalize(b.gain) }

func (b *Boosting) Fit(X [][]float64, y []float64) error {
	if err := checkShape(X, y); err != nil {
		return err
	}
	n, d := len(X), len(X[0])
	b.gain = make([]float64, d)
	b.stumps = b.stumps[:0]

	p := clamp(mean(y), 1e-6, 1-1e-6)
	b.base = math.Log(p / (1 - p))
	raw := make([]float64, n)
	for i := range raw {
		raw[i] = b.base
	}

	order := make([][]int, d)
	for j := 0; j < d; j++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, c int) bool { return X[idx[a]][j] < X[idx[c]][j] })
		order[j] = idx
	}

	grad := make([]float64, n)
	hess := make([]float64, n)
	minLeaf := b.MinLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}
	for round := 0; round < b.Rounds; round++ {
		for i := range raw {
			pi := sigmoid(raw[i])
			grad[i] = y[i] - pi
			hess[i] = math.Max(pi*(1-pi), 1e-6)
		}
		s, gain, ok := bestStump(X, grad, hess, order, minLeaf)
		if !ok {
			break
		}
		s.left *= b.LearningRate
		s.right *= b.LearningRate
		b.stumps = append(b.stumps, s)
		b.gain[s.feature] += gain
		for i := range raw {
			raw[i] += s.predict(X[i])
		}
	}
	return nil
}

// bestStump finds the split with the largest second-order gain.
func bestStump(X [][]float64, grad, hess []float64, order [][]int, minLeaf int) (stump, float64, bool) {
	var gTotal, hTotal float64
	for i := range grad {
		gTotal += grad[i]
		hTotal += hess[i]
	}
	parent := gTotal * gTotal / hTotal

	best, bestGain, found := stump{}, 0.0, false
	n := len(grad)
	for j, idx := range order {
		var gl, hl float64
		for k := 0; k < n-1; k++ {
			i := idx[k]
			gl += grad[i]
			hl += hess[i]
			if k+1 < minLeaf || n-k-1 < minLeaf {
				continue
			}
			cur, next := X[i][j], X[idx[k+1]][j]
			if cur == next {
				continue
			}
			gr, hr := gTotal-gl, hTotal-hl
			gain := gl*gl/hl + gr*gr/hr - parent
			if gain > bestGain {
				best = stump{feature: j, threshold: (cur + next) / 2, left: gl / hl, right: gr / hr}
				bestGain, found = gain, true
			}
		}
	}
	return best, bestGain, found
}

func (b *Boosting) Score(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		if hasNaN(x) {
			out[i] = math.NaN()
			continue
		}
		raw := b.base
		for _, s := range b.stumps {
			raw += s.predict(x)
		}
		out[i] = sigmoid(raw)
	}
	return out
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func clamp(x, lo, hi float64) float64 { return math.Min(math.Max(x, lo), hi) }

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func hasNaN(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
