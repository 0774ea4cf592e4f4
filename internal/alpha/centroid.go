package alpha

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Centroid labels a row with the class whose standardized mean is nearest.
type Centroid struct {
	scale     scaler
	centroids [2][]float64
	fitted    bool
}

func NewCentroid() *Centroid { return &Centroid{} }

func (c *Centroid) Name() string { return "centroid" }
func (c *Centroid) Output() Output { return OutputLabel }
func (c *Centroid) Signal(score float64) bool { return OutputLabel.Signal(score) }

func (c *Centroid) Fit(X [][]float64, y []float64) error {
	if err := checkShape(X, y); err != nil {
		return err
	}
	d := len(X[0])
	c.scale = fitScaler(X)
	var count [2]float64
	c.centroids = [2][]float64{make([]float64, d), make([]float64, d)}
	for i, x := range X {
		k := 0
		if y[i] >= 0.5 {
			k = 1
		}
		floats.Add(c.centroids[k], c.scale.apply(x))
		count[k]++
	}
	for k := range c.centroids {
		if count[k] > 0 {
			floats.Scale(1/count[k], c.centroids[k])
		}
	}
	// a class never seen must never win
	for k := range c.centroids {
		if count[k] == 0 {
			for j := range c.centroids[k] {
				c.centroids[k][j] = math.Inf(1)
			}
		}
	}
	c.fitted = true
	return nil
}

func (c *Centroid) Score(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		if !c.fitted || hasNaN(x) {
			out[i] = math.NaN()
			continue
		}
		z := c.scale.apply(x)
		if floats.Distance(z, c.centroids[1], 2) < floats.Distance(z, c.centroids[0], 2) {
			out[i] = 1
		}
	}
	return out
}

// Importances are the absolute gaps between class centroids.
func (c *Centroid) Importances() []float64 {
	if !c.fitted {
		return nil
	}
	gap := make([]float64, len(c.centroids[0]))
	for j := range gap {
		g := math.Abs(c.centroids[1][j] - c.centroids[0][j])
		if math.IsInf(g, 0) || math.IsNaN(g) {
			g = 0
		}
		gap[j] = g
	}
	return normalize(gap)
}
