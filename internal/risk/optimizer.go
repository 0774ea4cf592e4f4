package risk

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"quant-backtest/internal/model"
)

var (
	ErrTooFewRows       = errors.New("need at least three price rows to estimate covariance")
	ErrNoPositiveReturn = errors.New("at least one asset must have an expected return above the risk-free rate")
)

// Optimizer performs long-only mean-variance optimization:
// maximize Sharpe(w) - Gamma*||w||^2 subject to sum(w)=1 and 0<=w<=1.
type Optimizer struct {
	Gamma          float64 // L2 regularization strength
	RiskFreeRate   float64 // annualized
	PeriodsPerYear float64
	MaxIter        int
	Cutoff         float64 // weights below this are zeroed before renormalizing

	logger *slog.Logger
}

// NewOptimizer returns an optimizer with gamma 0.5, 252 periods per year and no risk-free rate.
func NewOptimizer(logger *slog.Logger) *Optimizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Optimizer{
		Gamma:          0.5,
		PeriodsPerYear: 252,
		MaxIter:        2000,
		Cutoff:         1e-4,
		logger:         logger,
	}
}

// SampleCovariance returns the annualized sample covariance of daily returns.
func (o *Optimizer) SampleCovariance(prices *model.Panel) (*mat.SymDense, error) {
	if prices.Len() < 3 {
		return nil, ErrTooFewRows
	}
	rets := prices.Returns()[1:]
	x := mat.NewDense(len(rets), len(prices.Columns), nil)
	for i, r := range rets {
		x.SetRow(i, r)
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, nil)
	cov.ScaleSym(o.PeriodsPerYear, &cov)
	return &cov, nil
}

// MaxSharpe returns optimal weights using alpha scores as expected returns.
// Instruments without a score get an expected return of zero; scores for
// unknown instruments are ignored.
func (o *Optimizer) MaxSharpe(prices *model.Panel, alpha map[string]float64) (map[string]float64, error) {
	o.logger.Info("starting MVO portfolio optimization", "assets", len(prices.Columns), "rows", prices.Len())
	if len(prices.Columns) == 0 {
		return nil, errors.New("no assets to optimize")
	}
	cov, err := o.SampleCovariance(prices)
	if err != nil {
		o.logger.Error("optimization failed", "err", err)
		return nil, err
	}

	n := len(prices.Columns)
	mu := make([]float64, n)
	for j, c := range prices.Columns {
		mu[j] = alpha[c]
	}
	if floats.Max(mu) <= o.RiskFreeRate {
		o.logger.Error("optimization failed", "err", ErrNoPositiveReturn)
		return nil, ErrNoPositiveReturn
	}

	w := o.solve(mu, cov)
	weights := o.clean(prices.Columns, w)
	o.logger.Info("MVO optimization complete", "weights", weights)
	return weights, nil
}

// solve runs projected gradient ascent on the simplex with backtracking.
func (o *Optimizer) solve(mu []float64, cov *mat.SymDense) []float64 {
	n := len(mu)
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	obj := func(w []float64) float64 { return o.objective(mu, cov, w) }
	step := 1.0
	cur := obj(w)
	for it := 0; it < o.MaxIter; it++ {
		g := o.gradient(mu, cov, w)
		improved := false
		for try := 0; try < 30; try++ {
			cand := make([]float64, n)
			for i := range cand {
				cand[i] = w[i] + step*g[i]
			}
			cand = projectSimplex(cand)
			if v := obj(cand); v > cur+1e-15 {
				if floats.Distance(cand, w, 2) < 1e-12 {
					break
				}
				w, cur, improved = cand, v, true
				step *= 1.5
				break
			}
			step /= 2
		}
		if !improved {
			break
		}
	}
	return w
}

func (o *Optimizer) variance(cov *mat.SymDense, w []float64) float64 {
	v := mat.NewVecDense(len(w), w)
	return mat.Inner(v, cov, v)
}

func (o *Optimizer) objective(mu []float64, cov *mat.SymDense, w []float64) float64 {
	sigma := math.Sqrt(math.Max(o.variance(cov, w), 1e-18))
	return (floats.Dot(mu, w)-o.RiskFreeRate)/sigma - o.Gamma*floats.Dot(w, w)
}

func (o *Optimizer) gradient(mu []float64, cov *mat.SymDense, w []float64) []float64 {
	n := len(w)
	var sw mat.VecDense
	sw.MulVec(cov, mat.NewVecDense(n, w))
	variance := math.Max(floats.Dot(sw.RawVector().Data, w), 1e-18)
	sigma := math.Sqrt(variance)
	excess := floats.Dot(mu, w) - o.RiskFreeRate
	g := make([]float64, n)
	for i := range g {
		g[i] = mu[i]/sigma - excess*sw.AtVec(i)/(variance*sigma) - 2*o.Gamma*w[i]
	}
	return g
}

func (o *Optimizer) clean(names []string, w []float64) map[string]float64 {
	total := 0.0
	for i := range w {
		if w[i] < o.Cutoff {
			w[i] = 0
		}
		total += w[i]
	}
	out := make(map[string]float64, len(names))
	for i, name := range names {
		if total > 0 {
			out[name] = w[i] / total
		} else {
			out[name] = 1 / float64(len(names))
		}
	}
	return out
}

// projectSimplex is the Euclidean projection onto {w >= 0, sum(w) = 1}.
func projectSimplex(v []float64) []float64 {
	u := append([]float64(nil), v...)
	sort.Sort(sort.Reverse(sort.Float64Slice(u)))
	cum, theta := 0.0, 0.0
	for i, x := range u {
		cum += x
		t := (cum - 1) / float64(i+1)
		if x-t > 0 {
			theta = t
		}
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Max(x-theta, 0)
	}
	return out
}

// FormatWeights renders weights sorted by name, mostly for logs and CLIs.
func FormatWeights(w map[string]float64) string {
	names := make([]string, 0, len(w))
	for k := range w {
		names = append(names, k)
	}
	sort.Strings(names)
	s := ""
	for i, k := range names {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%.4f", k, w[k])
	}
	return s
}
