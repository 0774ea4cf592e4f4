package alpha

import (
	"errors"
	"fmt"
	"math"

	"quant-backtest/internal/model"
)

// TrainFraction is the chronological share of rows used for training.
const TrainFraction = 0.8

var (
	ErrNoFeatures = errors.New("no feature columns found")
	ErrNoTarget   = errors.New("target column not found")
	ErrNoRows     = errors.New("no rows to train on")
)

// Dataset is a train/test split of a feature frame.
type Dataset struct {
	Features []string
	XTrain   [][]float64
	YTrain   []float64
	XTest    [][]float64
	YTest    []float64
}

// PrepareData orders rows by date and splits them 80/20 without shuffling or
// scaling. Every column other than target is a feature. Rows with a null
// feature or target are dropped first.
func PrepareData(f *model.Frame, target string) (*Dataset, error) {
	if f == nil || !f.Has(target) {
		return nil, fmt.Errorf("%q: %w", target, ErrNoTarget)
	}
	var names []string
	for _, c := range f.Columns {
		if c != target {
			names = append(names, c)
		}
	}
	if len(names) == 0 {
		return nil, ErrNoFeatures
	}

	clean := f.DropNulls().SortByDate()
	if clean.Len() == 0 {
		return nil, ErrNoRows
	}
	X, err := clean.Matrix(names)
	if err != nil {
		return nil, err
	}
	y := clean.Column(target)

	split := int(float64(len(X)) * TrainFraction)
	return &Dataset{
		Features: names,
		XTrain:   X[:split],
		YTrain:   append([]float64(nil), y[:split]...),
		XTest:    X[split:],
		YTest:    append([]float64(nil), y[split:]...),
	}, nil
}

// Accuracy is the share of predictions that match y, reading a prediction of
// at least 0.5 as class 1. It is NaN for empty input.
func Accuracy(pred, y []float64) float64 {
	n := len(pred)
	if len(y) < n {
		n = len(y)
	}
	if n == 0 {
		return math.NaN()
	}
	hit := 0
	for i := 0; i < n; i++ {
		if (pred[i] >= 0.5) == (y[i] >= 0.5) {
			hit++
		}
	}
	return float64(hit) / float64(n)
}
