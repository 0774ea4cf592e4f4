package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-backtest/internal/model"
	"quant-backtest/internal/risk"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

// trendPanel has A rising about 1%/day, B flat-ish, C falling.
func trendPanel(t *testing.T, n int) *model.Panel {
	t.Helper()
	dates := make([]time.Time, n)
	rows := make([][]float64, n)
	a, b, c := 100.0, 50.0, 80.0
	for i := 0; i < n; i++ {
		dates[i] = day(1).AddDate(0, 0, i)
		rows[i] = []float64{a, b, c}
		if i%2 == 0 {
			a *= 1.012
			b *= 1.002
			c *= 0.994
		} else {
			a *= 1.008
			b *= 0.999
			c *= 0.996
		}
	}
	p, err := model.NewPanel(dates, []string{"A", "B", "C"}, rows)
	require.NoError(t, err)
	return p
}

func TestEqualWeight(t *testing.T) {
	w := EqualWeight{}.Weights(trendPanel(t, 2))
	require.Len(t, w, 3)
	for _, v := range w {
		assert.InDelta(t, 1.0/3, v, 1e-12)
	}
	assert.Nil(t, EqualWeight{}.Weights(&model.Panel{}))
}

func TestFixedWeightsReturnsCopy(t *testing.T) {
	s := &FixedWeights{Targets: map[string]float64{"A": 0.7, "B": 0.3}}
	w := s.Weights(nil)
	w["A"] = 99
	assert.Equal(t, 0.7, s.Targets["A"])
}

func TestWeightFunc(t *testing.T) {
	var s Strategy = WeightFunc(func(*model.Panel) map[string]float64 {
		return map[string]float64{"A": 1}
	})
	assert.Equal(t, "func", s.Name())
	assert.Equal(t, map[string]float64{"A": 1}, s.Weights(nil))
}

func TestMomentum(t *testing.T) {
	s := &Momentum{Params: MomentumParams{Lookback: 5, TopK: 1}}
	assert.Nil(t, s.Weights(trendPanel(t, 5)), "no weights before lookback")

	w := s.Weights(trendPanel(t, 10))
	assert.Equal(t, 1.0, w["A"])
	assert.Equal(t, 0.0, w["B"])
	assert.Equal(t, 0.0, w["C"])

	s.Params.TopK = 2
	w = s.Weights(trendPanel(t, 10))
	assert.Equal(t, 0.5, w["A"])
	assert.Equal(t, 0.5, w["B"])
}

func TestMVOPrefersRisingAsset(t *testing.T) {
	s := &MVO{Lookback: 20, Optimizer: risk.NewOptimizer(nil)}
	assert.Nil(t, s.Weights(trendPanel(t, 10)))

	w := s.Weights(trendPanel(t, 30))
	require.NotNil(t, w)
	total := 0.0
	for _, v := range w {
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.Greater(t, w["A"], w["C"])
}

func TestAlphaTableAt(t *testing.T) {
	tbl := NewAlphaTable()
	tbl.Set(day(5), "A", 0.8)
	tbl.Set(day(2), "A", 0.4)
	tbl.Set(day(2), "B", 0.6)

	assert.Nil(t, tbl.At(day(1)))
	assert.Equal(t, map[string]float64{"A": 0.4, "B": 0.6}, tbl.At(day(3)))
	assert.Equal(t, map[string]float64{"A": 0.8}, tbl.At(day(5).Add(15*time.Hour)))
	assert.Equal(t, 2, tbl.Len())
}

func TestAlphaSignalProportional(t *testing.T) {
	tbl := NewAlphaTable()
	tbl.Set(day(3), "A", 0.9)
	tbl.Set(day(3), "B", 0.3)
	s := &AlphaSignal{Table: tbl, Threshold: 0.5}

	assert.Nil(t, s.Weights(trendPanel(t, 2)), "no scores yet")
	w := s.Weights(trendPanel(t, 3))
	assert.Equal(t, map[string]float64{"A": 0.9, "B": 0, "C": 0}, w)
}

func TestAlphaTableFromFrame(t *testing.T) {
	f, err := model.NewFrame([]time.Time{day(1), day(1)}, []string{"A", "B"})
	require.NoError(t, err)
	require.NoError(t, f.AddColumn("prob", []float64{0.7, 0.2}))

	tbl, err := AlphaTableFromFrame(f, "prob")
	require.NoError(t, err)
	assert.Equal(t, 0.7, tbl.At(day(1))["A"])

	_, err = AlphaTableFromFrame(f, "missing")
	assert.Error(t, err)
}

func TestOracleHoldsBestPerformer(t *testing.T) {
	prices := trendPanel(t, 10)
	s, err := NewOracleStrategy(prices, MustParseFrequency("D"))
	require.NoError(t, err)
	w := s.Weights(prices.Head(4))
	assert.Equal(t, 1.0, w["A"])
	assert.Equal(t, 0.0, w["C"])
}

func TestFromConfig(t *testing.T) {
	s, err := FromConfig("momentum", map[string]interface{}{"lookback": 3.0, "top_k": 2}, Deps{})
	require.NoError(t, err)
	m := s.(*Momentum)
	assert.Equal(t, 3, m.Params.Lookback)
	assert.Equal(t, 2, m.Params.TopK)

	s, err = FromConfig("fixed", map[string]interface{}{"A": 0.6, "B": 0.4}, Deps{})
	require.NoError(t, err)
	assert.Equal(t, 0.6, s.Weights(nil)["A"])

	s, err = FromConfig("mvo", map[string]interface{}{"gamma": 1.0}, Deps{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.(*MVO).Optimizer.Gamma)

	_, err = FromConfig("alpha", nil, Deps{})
	assert.Error(t, err)

	_, err = FromConfig("martingale", nil, Deps{})
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestCatalogMatchesFromConfig(t *testing.T) {
	deps := Deps{
		Prices:    trendPanel(t, 5),
		Frequency: MustParseFrequency("D"),
		Alpha:     NewAlphaTable(),
	}
	for _, name := range Names() {
		params := map[string]interface{}{}
		if name == "fixed" {
			params["A"] = 1.0
		}
		s, err := FromConfig(name, params, deps)
		require.NoError(t, err, name)
		assert.Equal(t, name, s.Name())
	}
}
