package alpha

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// scaler standardizes columns with the training mean and deviation.
type scaler struct {
	mean, std []float64
}

func fitScaler(X [][]float64) scaler {
	d := len(X[0])
	s := scaler{mean: make([]float64, d), std: make([]float64, d)}
	col := make([]float64, len(X))
	for j := 0; j < d; j++ {
		for i, x := range X {
			col[i] = x[j]
		}
		s.mean[j], s.std[j] = stat.PopMeanStdDev(col, nil)
		if s.std[j] == 0 || math.IsNaN(s.std[j]) {
			s.std[j] = 1
		}
	}
	return s
}

func (s scaler) apply(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.mean[j]) / s.std[j]
	}
	return out
}

func (s scaler) dense(X [][]float64) *mat.Dense {
	m := mat.NewDense(len(X), len(s.mean), nil)
	for i, x := range X {
		m.SetRow(i, s.apply(x))
	}
	return m
}

// Logistic is L2-regularized logistic regression fitted by batch gradient
// descent on standardized features.
type Logistic struct {
	Iterations   int
	LearningRate float64
	L2           float64

	scale  scaler
	weight *mat.VecDense
	bias   float64
}

func NewLogistic() *Logistic {
	return &Logistic{Iterations: 500, LearningRate: 0.5, L2: 1e-4}
}

func (l *Logistic) Name() string { return "logistic" }
func (l *Logistic) Output() Output { return OutputProbability }
func (l *Logistic) Signal(score float64) bool { return OutputProbability.Signal(score) }

func (l *Logistic) Fit(X [][]float64, y []float64) error {
	if err := checkShape(X, y); err != nil {
		return err
	}
	n, d := len(X), len(X[0])
	l.scale = fitScaler(X)
	A := l.scale.dense(X)
	target := mat.NewVecDense(n, append([]float64(nil), y...))

	w := mat.NewVecDense(d, nil)
	var bias float64
	z := mat.NewVecDense(n, nil)
	resid := mat.NewVecDense(n, nil)
	grad := mat.NewVecDense(d, nil)
	for it := 0; it < l.Iterations; it++ {
		z.MulVec(A, w)
		for i := 0; i < n; i++ {
			resid.SetVec(i, sigmoid(z.AtVec(i)+bias)-target.AtVec(i))
		}
		grad.MulVec(A.T(), resid)
		grad.ScaleVec(1/float64(n), grad)
		grad.AddScaledVec(grad, l.L2, w)
		w.AddScaledVec(w, -l.LearningRate, grad)
		bias -= l.LearningRate * mat.Sum(resid) / float64(n)
	}
	l.weight, l.bias = w, bias
	return nil
}

func (l *Logistic) Score(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		if l.weight == nil || hasNaN(x) {
			out[i] = math.NaN()
			continue
		}
		out[i] = sigmoid(floats.Dot(l.scale.apply(x), l.weight.RawVector().Data) + l.bias)
	}
	return out
}

// Importances are absolute standardized coefficients.
func (l *Logistic) Importances() []float64 {
	if l.weight == nil {
		return nil
	}
	abs := make([]float64, l.weight.Len())
	for j := range abs {
		abs[j] = math.Abs(l.weight.AtVec(j))
	}
	return normalize(abs)
}
