package alpha

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"quant-backtest/internal/model"
)

// Output is what a model's Score returns.
type Output int

const (
	// OutputProbability scores are P(target = 1) in [0, 1].
	OutputProbability Output = iota
	// OutputLabel scores are hard 0/1 labels.
	OutputLabel
)

func (o Output) String() string {
	switch o {
	case OutputProbability:
		return "probability"
	case OutputLabel:
		return "label"
	}
	return "unknown"
}

// Signal reports whether a score calls for a long position.
func (o Output) Signal(score float64) bool {
	if o == OutputLabel {
		return score > 0
	}
	return score > 0.5
}

// Model is a binary classifier over numeric features.
type Model interface {
	Name() string
	Output() Output
	Fit(X [][]float64, y []float64) error
	Score(X [][]float64) []float64
	Signal(score float64) bool
	// Importances has one non-negative weight per feature, summing to 1
	// once fitted.
	Importances() []float64
}

var (
	ErrUnknownModel = errors.New("unknown model")
	ErrNotFitted    = errors.New("model is not fitted")
	errShape        = errors.New("feature matrix and labels differ in length")
)

// Kinds lists the model names accepted by Build.
func Kinds() []string { return []string{"boosting", "logistic", "centroid"} }

// Build returns an unfitted model by name.
func Build(kind string) (Model, error) {
	switch strings.ToLower(kind) {
	case "", "boosting":
		return NewBoosting(), nil
	case "logistic":
		return NewLogistic(), nil
	case "centroid":
		return NewCentroid(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownModel, kind)
}

// Trainer fits models and logs what they learned.
type Trainer struct {
	logger *slog.Logger
}

func NewTrainer(logger *slog.Logger) *Trainer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Trainer{logger: logger}
}

// Train fits m on the training split and logs test accuracy and feature
// importances, highest first.
func (t *Trainer) Train(m Model, ds *Dataset) error {
	if len(ds.XTrain) == 0 {
		t.logger.Error("no training rows", "model", m.Name())
		return ErrNoRows
	}
	if err := m.Fit(ds.XTrain, ds.YTrain); err != nil {
		t.logger.Error("model training failed", "model", m.Name(), "err", err)
		return err
	}
	t.logger.Info("model training complete", "model", m.Name(), "rows", len(ds.XTrain),
		"test_rows", len(ds.XTest), "test_accuracy", Accuracy(m.Score(ds.XTest), ds.YTest))

	for _, fi := range RankImportances(ds.Features, m.Importances()) {
		t.logger.Info("feature importance", "feature", fi.Feature, "score", fmt.Sprintf("%.4f", fi.Score))
	}
	return nil
}

// FeatureImportance pairs a feature with its weight.
type FeatureImportance struct {
	Feature string  `json:"feature"`
	Score   float64 `json:"score"`
}

// RankImportances sorts features by importance, highest first.
func RankImportances(names []string, scores []float64) []FeatureImportance {
	out := make([]FeatureImportance, 0, len(names))
	for i, n := range names {
		if i < len(scores) {
			out = append(out, FeatureImportance{Feature: n, Score: scores[i]})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}

// Predict scores every row of f using the named feature columns.
// Rows with a null feature score NaN.
func Predict(m Model, f *model.Frame, features []string) ([]float64, error) {
	X, err := f.Matrix(features)
	if err != nil {
		return nil, err
	}
	return m.Score(X), nil
}

func checkShape(X [][]float64, y []float64) error {
	if len(X) != len(y) {
		return errShape
	}
	if len(X) == 0 {
		return ErrNoRows
	}
	return nil
}

func normalize(w []float64) []float64 {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	out := make([]float64, len(w))
	if sum <= 0 {
		return out
	}
	for i, v := range w {
		out[i] = v / sum
	}
	return out
}
