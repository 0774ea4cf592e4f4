package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-backtest/internal/model"
)

func TestAnalyze(t *testing.T) {
	r := []float64{0.01, -0.02, 0.015, 0.005, -0.01, 0.02}
	m := Analyze(r, 0)

	mean := 0.0
	for _, v := range r {
		mean += v
	}
	mean /= float64(len(r))
	ss := 0.0
	for _, v := range r {
		ss += (v - mean) * (v - mean)
	}
	std := math.Sqrt(ss / float64(len(r)-1))

	assert.InDelta(t, mean/std*math.Sqrt(252), m.Sharpe, 1e-12)
	assert.InDelta(t, std*math.Sqrt(252), m.Volatility, 1e-12)
	assert.Equal(t, 6, m.Periods)

	growth := 1.01 * 0.98 * 1.015 * 1.005 * 0.99 * 1.02
	assert.InDelta(t, growth-1, m.TotalReturn, 1e-12)
	assert.InDelta(t, math.Pow(growth, 252.0/6)-1, m.CAGR, 1e-9)

	// Peak after day one, trough after day two.
	assert.InDelta(t, -0.02, m.MaxDrawdown, 1e-12)
	assert.False(t, math.IsNaN(m.Sortino))
}

func TestAnalyzeUndefined(t *testing.T) {
	m := Analyze(nil, 0)
	assert.True(t, math.IsNaN(m.Sharpe))
	assert.True(t, math.IsNaN(m.CAGR))
	assert.Equal(t, 0, m.Periods)

	m = Analyze([]float64{0, 0, 0}, 0)
	assert.True(t, math.IsNaN(m.Sharpe), "zero deviation")
	assert.True(t, math.IsNaN(m.Sortino), "no downside")
	assert.Equal(t, 0.0, m.MaxDrawdown)

	m = Analyze([]float64{math.NaN(), 0.02, -0.01, -0.03}, 0.05)
	assert.False(t, math.IsNaN(m.Sharpe))
}

func TestAnalyzerLogs(t *testing.T) {
	a := NewAnalyzer(0.02, nil)
	r := []float64{0.1, -0.1, 0.05}
	want := Analyze(r, 0.02)
	got := a.Analyze(r)
	assert.Equal(t, want.Sharpe, got.Sharpe)
	assert.Equal(t, want.MaxDrawdown, got.MaxDrawdown)
}

func rankPanel(t *testing.T) *model.Panel {
	t.Helper()
	dates := make([]time.Time, 6)
	for i := range dates {
		dates[i] = time.Date(2024, 2, i+1, 0, 0, 0, 0, time.UTC)
	}
	rows := [][]float64{
		{10, 10, 5},
		{10.2, 9.9, 5},
		{10.3, 9.7, 5},
		{10.2, 9.8, 5},
		{10.5, 9.5, 5},
		{10.7, 9.4, 5},
	}
	p, err := model.NewPanel(dates, []string{"UP", "DOWN", "FLAT"}, rows)
	require.NoError(t, err)
	return p
}

func TestRankInstruments(t *testing.T) {
	ranked := RankInstruments(rankPanel(t), 0)
	require.Len(t, ranked, 3)
	assert.Equal(t, "UP", ranked[0].Instrument)
	assert.Equal(t, "DOWN", ranked[1].Instrument)
	assert.Equal(t, "FLAT", ranked[2].Instrument)
	assert.Equal(t, 3, ranked[2].Rank)
	assert.True(t, math.IsNaN(ranked[2].Metrics.Sharpe))
}

func TestSummarize(t *testing.T) {
	s := Summarize(rankPanel(t), "UP", 0)
	assert.Equal(t, 6, s.Count)
	assert.Equal(t, 10.0, s.FirstPrice)
	assert.Equal(t, 10.7, s.LastPrice)
	assert.GreaterOrEqual(t, s.OracleReturn, s.Metrics.TotalReturn)
	assert.LessOrEqual(t, s.P05Return, s.P95Return)

	empty := Summarize(rankPanel(t), "MISSING", 0)
	assert.Equal(t, 0, empty.Count)
}
