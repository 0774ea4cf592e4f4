package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-backtest/internal/model"
)

func testPanel(t *testing.T, cols []string, series ...[]float64) *model.Panel {
	t.Helper()
	n := len(series[0])
	dates := make([]time.Time, n)
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		dates[i] = time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC)
		rows[i] = make([]float64, len(cols))
		for j := range cols {
			rows[i][j] = series[j][i]
		}
	}
	p, err := model.NewPanel(dates, cols, rows)
	require.NoError(t, err)
	return p
}

func sum(w map[string]float64) float64 {
	s := 0.0
	for _, v := range w {
		s += v
	}
	return s
}

func TestMaxSharpeWeightsSumToOne(t *testing.T) {
	prices := testPanel(t, []string{"A", "B"},
		[]float64{1, 1.1, 1.2, 1.3},
		[]float64{2, 2.1, 2.2, 2.3},
	)
	w, err := NewOptimizer(nil).MaxSharpe(prices, map[string]float64{"A": 0.1, "B": 0.2})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sum(w), 1e-6)
	for name, v := range w {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}
}

func TestMaxSharpeIgnoresUnknownAndDefaultsMissing(t *testing.T) {
	prices := testPanel(t, []string{"A", "B", "C"},
		[]float64{10, 10.5, 10.2, 10.9, 11.1},
		[]float64{20, 19.5, 20.4, 20.1, 20.8},
		[]float64{5, 5.1, 5.05, 5.2, 5.3},
	)
	w, err := NewOptimizer(nil).MaxSharpe(prices, map[string]float64{"A": 0.15, "Z": 3})
	require.NoError(t, err)
	assert.Len(t, w, 3)
	assert.NotContains(t, w, "Z")
	assert.InDelta(t, 1.0, sum(w), 1e-9)
}

func TestMaxSharpeRequiresPositiveExpectedReturn(t *testing.T) {
	prices := testPanel(t, []string{"A", "B"},
		[]float64{1, 1.1, 1.2},
		[]float64{2, 2.1, 2.3},
	)
	_, err := NewOptimizer(nil).MaxSharpe(prices, map[string]float64{"A": -0.1, "B": 0})
	assert.ErrorIs(t, err, ErrNoPositiveReturn)
}

func TestMaxSharpeTooFewRows(t *testing.T) {
	prices := testPanel(t, []string{"A"}, []float64{1, 1.1})
	_, err := NewOptimizer(nil).MaxSharpe(prices, map[string]float64{"A": 0.1})
	assert.ErrorIs(t, err, ErrTooFewRows)
}

func TestProjectSimplex(t *testing.T) {
	w := projectSimplex([]float64{0.8, 0.6, -0.5})
	assert.InDelta(t, 0.6, w[0], 1e-12)
	assert.InDelta(t, 0.4, w[1], 1e-12)
	assert.Equal(t, 0.0, w[2])

	w = projectSimplex([]float64{0.2, 0.3, 0.5})
	assert.InDeltaSlice(t, []float64{0.2, 0.3, 0.5}, w, 1e-12)
}

func TestFormatWeights(t *testing.T) {
	assert.Equal(t, "A=0.2500 B=0.7500", FormatWeights(map[string]float64{"B": 0.75, "A": 0.25}))
}

func TestScenarioAnalyzer(t *testing.T) {
	a := NewScenarioAnalyzer(nil)
	res, err := a.StressTest(map[string]float64{"A": 0.5, "B": 0.5}, "crash")
	require.NoError(t, err)
	assert.Equal(t, "crash", res.Scenario)
	assert.Less(t, res.ExpectedReturn, 0.0)
	assert.InDelta(t, -0.30, res.ExpectedReturn, 1e-12)

	res, err = a.StressTest(map[string]float64{"A": 0.25}, "mild_bull")
	require.NoError(t, err)
	assert.InDelta(t, 0.025, res.ExpectedReturn, 1e-12)
}

func TestScenarioAnalyzerUnknown(t *testing.T) {
	_, err := NewScenarioAnalyzer(nil).StressTest(map[string]float64{"A": 1}, "meteor")
	assert.ErrorIs(t, err, ErrUnknownScenario)
}

func TestStressAll(t *testing.T) {
	out := NewScenarioAnalyzer(nil).StressAll(map[string]float64{"A": 1})
	require.Len(t, out, 4)
	assert.Equal(t, "crash", out[0].Scenario)
	assert.Equal(t, "rally", out[3].Scenario)
}
