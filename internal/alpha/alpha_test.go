package alpha

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-backtest/internal/model"
)

// separable returns rows where only feature 0 decides the label.
func separable(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		x0, x1 := rng.Float64(), rng.Float64()
		X[i] = []float64{x0, x1}
		if x0 > 0.5 {
			y[i] = 1
		}
	}
	return X, y
}

func TestModelsLearnSeparableData(t *testing.T) {
	X, y := separable(300, 1)
	Xt, yt := separable(100, 2)
	for _, kind := range Kinds() {
		t.Run(kind, func(t *testing.T) {
			m, err := Build(kind)
			require.NoError(t, err)
			require.NoError(t, m.Fit(X, y))

			assert.Greater(t, Accuracy(m.Score(Xt), yt), 0.85)

			imp := m.Importances()
			require.Len(t, imp, 2)
			assert.InDelta(t, 1, imp[0]+imp[1], 1e-9)
			assert.Greater(t, imp[0], imp[1])
		})
	}
}

func TestBuildCapabilities(t *testing.T) {
	m, err := Build("")
	require.NoError(t, err)
	assert.Equal(t, "boosting", m.Name())
	assert.Equal(t, OutputProbability, m.Output())

	m, err = Build("Centroid")
	require.NoError(t, err)
	assert.Equal(t, OutputLabel, m.Output())
	assert.True(t, m.Signal(1))
	assert.False(t, m.Signal(0))

	_, err = Build("forest")
	assert.ErrorIs(t, err, ErrUnknownModel)

	assert.True(t, OutputProbability.Signal(0.6))
	assert.False(t, OutputProbability.Signal(0.5))
	assert.Equal(t, "label", OutputLabel.String())
}

func TestFitErrors(t *testing.T) {
	for _, kind := range Kinds() {
		m, _ := Build(kind)
		assert.ErrorIs(t, m.Fit(nil, nil), ErrNoRows, kind)
		assert.Error(t, m.Fit([][]float64{{1}}, []float64{1, 0}), kind)
	}
}

func TestScoreMarksNullRows(t *testing.T) {
	X, y := separable(50, 3)
	for _, kind := range Kinds() {
		m, _ := Build(kind)
		require.NoError(t, m.Fit(X, y))
		s := m.Score([][]float64{{math.NaN(), 0.1}, {0.9, 0.1}})
		assert.True(t, math.IsNaN(s[0]), kind)
		assert.False(t, math.IsNaN(s[1]), kind)
	}
}

func TestCentroidSingleClass(t *testing.T) {
	c := NewCentroid()
	require.NoError(t, c.Fit([][]float64{{1}, {2}}, []float64{1, 1}))
	assert.Equal(t, []float64{1}, c.Score([][]float64{{-50}}))
}

func frame(t *testing.T, n int) *model.Frame {
	t.Helper()
	dates := make([]time.Time, n)
	tickers := make([]string, n)
	x := make([]float64, n)
	target := make([]float64, n)
	for i := 0; i < n; i++ {
		// newest first, so PrepareData has to reorder
		dates[i] = time.Date(2024, 1, n-i, 0, 0, 0, 0, time.UTC)
		tickers[i] = "A"
		x[i] = float64(n - i)
		target[i] = float64(i % 2)
	}
	f, err := model.NewFrame(dates, tickers)
	require.NoError(t, err)
	require.NoError(t, f.AddColumn("x", x))
	require.NoError(t, f.AddColumn("target", target))
	return f
}

func TestPrepareData(t *testing.T) {
	f := frame(t, 10)
	f.Column("x")[0] = math.NaN() // newest row dropped

	ds, err := PrepareData(f, "target")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, ds.Features)
	assert.Len(t, ds.XTrain, 7)
	assert.Len(t, ds.XTest, 2)
	assert.Equal(t, 1.0, ds.XTrain[0][0], "oldest row first")
	assert.Equal(t, 9.0, ds.XTest[1][0])

	_, err = PrepareData(f, "label")
	assert.ErrorIs(t, err, ErrNoTarget)

	f.Drop("x")
	_, err = PrepareData(f, "target")
	assert.ErrorIs(t, err, ErrNoFeatures)
}

func TestTrainAndPredict(t *testing.T) {
	X, y := separable(100, 4)
	ds := &Dataset{Features: []string{"signal", "noise"}, XTrain: X[:80], YTrain: y[:80], XTest: X[80:], YTest: y[80:]}
	m := NewLogistic()
	require.NoError(t, NewTrainer(nil).Train(m, ds))

	ranked := RankImportances(ds.Features, m.Importances())
	assert.Equal(t, "signal", ranked[0].Feature)

	assert.ErrorIs(t, NewTrainer(nil).Train(NewBoosting(), &Dataset{}), ErrNoRows)

	f := frame(t, 4)
	scores, err := Predict(m, f, []string{"x", "target"})
	require.NoError(t, err)
	assert.Len(t, scores, 4)
	_, err = Predict(m, f, []string{"missing"})
	assert.Error(t, err)
}

func TestAccuracy(t *testing.T) {
	assert.Equal(t, 0.75, Accuracy([]float64{0.9, 0.2, 1, 0.4}, []float64{1, 0, 1, 1}))
	assert.True(t, math.IsNaN(Accuracy(nil, nil)))
}
