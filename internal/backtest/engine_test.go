package backtest

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-backtest/internal/model"
	"quant-backtest/internal/strategy"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func panelOf(t *testing.T, cols []string, series ...[]float64) *model.Panel {
	t.Helper()
	n := len(series[0])
	dates := make([]time.Time, n)
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		dates[i] = day(1).AddDate(0, 0, i)
		rows[i] = make([]float64, len(cols))
		for j := range cols {
			rows[i][j] = series[j][i]
		}
	}
	p, err := model.NewPanel(dates, cols, rows)
	require.NoError(t, err)
	return p
}

// wavyPanel is a month of two instruments moving in opposite waves.
func wavyPanel(t *testing.T) *model.Panel {
	t.Helper()
	n := 30
	a := make([]float64, n)
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		a[i] = 100 + 5*math.Sin(float64(i)/3)
		b[i] = 50 + 2*math.Cos(float64(i)/4)
	}
	return panelOf(t, []string{"A", "B"}, a, b)
}

func zeroCost() model.CostParams {
	return model.CostParams{InitialCapital: 100_000}
}

var noWeights = strategy.WeightFunc(func(*model.Panel) map[string]float64 { return nil })

func TestEndToEndThreeDays(t *testing.T) {
	prices := panelOf(t, []string{"A", "B"},
		[]float64{100, 105, 110.25},
		[]float64{100, 102.5, 105.0625},
	)
	res, err := New(zeroCost(), nil).Run(prices, strategy.EqualWeight{}, "D")
	require.NoError(t, err)

	// Day 1 has no history to trade on; the day 2 trade earns day 3's move.
	want := 100_000 * 1.0375
	assert.InEpsilon(t, want, res.FinalEquity(), 1e-6)
	require.Len(t, res.Equity, 2)
	assert.Equal(t, day(2), res.Equity[0].Date)
	assert.Equal(t, 100_000.0, res.Equity[0].Equity)
	assert.Equal(t, day(3), res.Equity[1].Date)
	assert.Equal(t, []float64{0, res.Equity[1].Equity/res.Equity[0].Equity - 1}, res.Returns)
	assert.Len(t, res.RebalanceDates, 3)
}

func TestEngineParams(t *testing.T) {
	params := model.CostParams{InitialCapital: 5_000, CommissionBps: 7, SlippageBps: 3}
	assert.Equal(t, params, New(params, nil).Params())
}

func TestCapitalConservedWithoutTrading(t *testing.T) {
	res, err := New(model.DefaultCostParams(), nil).Run(wavyPanel(t), noWeights, "W-FRI")
	require.NoError(t, err)
	require.NotEmpty(t, res.Equity)
	for _, p := range res.Equity {
		assert.Equal(t, 100_000.0, p.Equity)
	}
	assert.Empty(t, res.Trades)
	assert.Equal(t, 100_000.0, res.FinalCash)
}

func TestNormalizeWeights(t *testing.T) {
	cols := []string{"A", "B", "C"}
	for _, target := range []map[string]float64{
		{"A": 1, "B": 1, "C": 1},
		{"A": 3, "B": -1},
		{"A": 0.001},
		{"C": 250, "Z": 1e9},
	} {
		w := NormalizeWeights(target, cols)
		gross := 0.0
		for _, v := range w {
			gross += math.Abs(v)
		}
		assert.InDelta(t, 1.0, gross, 1e-6, "%v", target)
	}

	w := NormalizeWeights(map[string]float64{"A": 0, "B": 0}, cols)
	assert.Equal(t, []float64{0, 0, 0}, w)

	w = NormalizeWeights(map[string]float64{"A": math.NaN(), "B": 1}, cols)
	assert.InDelta(t, 1.0, w[1], 1e-9)
	assert.Equal(t, 0.0, w[0])
}

func TestLedgerIdentity(t *testing.T) {
	mom := &strategy.Momentum{Params: strategy.MomentumParams{Lookback: 3, TopK: 1}}
	res, err := New(model.DefaultCostParams(), nil).Run(wavyPanel(t), mom, "D")
	require.NoError(t, err)
	require.Len(t, res.Ledger, len(res.Equity))
	require.NotEmpty(t, res.Trades)

	for i, row := range res.Ledger {
		value := row.Cash
		for inst, units := range row.Positions {
			value += units * row.Prices[inst]
		}
		assert.InDelta(t, res.Equity[i].Equity, value, 1e-9, row.Date)
		assert.Equal(t, res.Equity[i].Date, row.Date)
	}
}

func TestCommissionMonotonicity(t *testing.T) {
	mom := &strategy.Momentum{Params: strategy.MomentumParams{Lookback: 2, TopK: 1}}
	final := func(bps float64) float64 {
		params := model.CostParams{InitialCapital: 100_000, CommissionBps: bps, SlippageBps: 5}
		res, err := New(params, nil).Run(wavyPanel(t), mom, "B")
		require.NoError(t, err)
		return res.FinalEquity()
	}
	low, mid, high := final(0), final(10), final(50)
	assert.Greater(t, low, mid)
	assert.Greater(t, mid, high)

	// No trades means no commission difference.
	flat := func(bps float64) float64 {
		params := model.CostParams{InitialCapital: 100_000, CommissionBps: bps}
		res, err := New(params, nil).Run(wavyPanel(t), noWeights, "B")
		require.NoError(t, err)
		return res.FinalEquity()
	}
	assert.Equal(t, flat(0), flat(100))
}

func TestNoOpRebalanceIsIdempotent(t *testing.T) {
	prices := panelOf(t, []string{"A", "B"},
		[]float64{10, 10, 10, 10},
		[]float64{20, 20, 20, 20},
	)
	fixed := &strategy.FixedWeights{Targets: map[string]float64{"A": 0.25, "B": 0.75}}
	res, err := New(zeroCost(), nil).Run(prices, fixed, "D")
	require.NoError(t, err)

	require.Len(t, res.Trades, 2, "only the first rebalance trades")
	for _, tr := range res.Trades {
		assert.Equal(t, day(2), tr.Date)
	}
	require.Len(t, res.Ledger, 3)
	assert.Equal(t, 100_000.0, res.Ledger[0].Cash, "day 2 is marked before its trade")
	for _, row := range res.Ledger[1:] {
		assert.InDelta(t, res.Trades[1].CashAfter, row.Cash, 1e-9)
		assert.InDelta(t, res.Trades[0].UnitsAfter, row.Positions["A"], 1e-12)
	}
}

func TestFinalValuationReplacesLastPoint(t *testing.T) {
	prices := panelOf(t, []string{"A"},
		[]float64{10, 11, 12, 13, 14, 15, 16},
	)
	// Jan 1 2024 is a Monday; W-WED rebalances on the 3rd only.
	res, err := New(model.DefaultCostParams(), nil).Run(prices, strategy.EqualWeight{}, "W-WED")
	require.NoError(t, err)
	require.Len(t, res.Equity, 3)
	assert.Equal(t, day(2), res.Equity[0].Date)
	assert.Equal(t, day(3), res.Equity[1].Date)
	assert.Equal(t, day(7), res.Equity[2].Date, "final valuation appended")
	assert.Equal(t, 100_000.0, res.Equity[1].Equity, "pre-trade mark on the rebalance date")

	// Rebalancing on the last day replaces its pre-trade mark with the post-trade value.
	res, err = New(model.DefaultCostParams(), nil).Run(prices, strategy.EqualWeight{}, "W-SUN")
	require.NoError(t, err)
	last := res.Ledger[len(res.Ledger)-1]
	assert.Equal(t, day(7), last.Date)
	assert.Greater(t, last.Positions["A"], 0.0)
	assert.Less(t, last.Equity, 100_000.0, "costs paid on the final trade")
}

func TestRunUnsortedInputIsSorted(t *testing.T) {
	prices := panelOf(t, []string{"A", "B"},
		[]float64{100, 105, 110.25},
		[]float64{100, 102.5, 105.0625},
	)
	prices.Dates[0], prices.Dates[2] = prices.Dates[2], prices.Dates[0]
	prices.Rows[0], prices.Rows[2] = prices.Rows[2], prices.Rows[0]

	res, err := New(zeroCost(), nil).Run(prices, strategy.EqualWeight{}, "D")
	require.NoError(t, err)
	assert.InEpsilon(t, 100_000*1.0375, res.FinalEquity(), 1e-6)
}

func TestStrategySeesHistoryThroughRebalanceDate(t *testing.T) {
	prices := panelOf(t, []string{"A", "B"},
		[]float64{10, 11, 12, 13},
		[]float64{20, 21, 22, 23},
	)
	var lens []int
	var seen []time.Time
	record := strategy.WeightFunc(func(h *model.Panel) map[string]float64 {
		lens = append(lens, h.Len())
		seen = append(seen, h.Dates[h.Len()-1])
		return map[string]float64{"A": 1}
	})
	res, err := New(zeroCost(), nil).Run(prices, record, "D")
	require.NoError(t, err)

	require.Len(t, res.RebalanceDates, 4)
	assert.Equal(t, []int{2, 3, 4}, lens, "history ends at the rebalance row")
	assert.Equal(t, []time.Time{day(2), day(3), day(4)}, seen, "no call on the first date")
	require.NotEmpty(t, res.Trades)
	assert.Equal(t, day(2), res.Trades[0].Date)
}

func TestRunFailures(t *testing.T) {
	e := New(model.DefaultCostParams(), nil)

	_, err := e.Run(&model.Panel{}, strategy.EqualWeight{}, "D")
	assert.ErrorIs(t, err, ErrEmptyPanel)

	noCols, err := model.NewPanel([]time.Time{day(1)}, nil, [][]float64{{}})
	require.NoError(t, err)
	_, err = e.Run(noCols, strategy.EqualWeight{}, "D")
	assert.ErrorIs(t, err, ErrNoInstruments)

	prices := panelOf(t, []string{"A"}, []float64{1, 2, 3})
	_, err = e.Run(prices, strategy.EqualWeight{}, "Q")
	assert.ErrorIs(t, err, ErrNoRebalanceDates)

	_, err = e.Run(prices, strategy.EqualWeight{}, "fortnightly")
	assert.ErrorIs(t, err, strategy.ErrInvalidFrequency)

	_, err = New(model.CostParams{InitialCapital: -1}, nil).Run(prices, strategy.EqualWeight{}, "D")
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	res, err := New(model.DefaultCostParams(), nil).Run(wavyPanel(t), strategy.EqualWeight{}, "W-FRI")
	require.NoError(t, err)

	dir := t.TempDir()
	eqPath := filepath.Join(dir, "equity.csv")
	trPath := filepath.Join(dir, "trades.csv")
	require.NoError(t, WriteEquityCSV(eqPath, res))
	require.NoError(t, WriteTradesCSV(trPath, res.Trades))

	f, err := os.Open(eqPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "cash", "equity", "return", "units_A", "units_B"}, records[0])
	assert.Len(t, records, len(res.Ledger)+1)

	g, err := os.Open(trPath)
	require.NoError(t, err)
	defer g.Close()
	trades, err := csv.NewReader(g).ReadAll()
	require.NoError(t, err)
	assert.Len(t, trades, len(res.Trades)+1)
	assert.Equal(t, "BUY", trades[1][2])
}

func TestVectorized(t *testing.T) {
	prices := panelOf(t, []string{"AAA", "BBB"},
		[]float64{10, 10.5, 11},
		[]float64{20, 20.5, 20},
	)
	signals := panelOf(t, []string{"AAA", "BBB", "CCC"},
		[]float64{0.5, 0.5, 0.5},
		[]float64{0.5, 0.5, 0.5},
		[]float64{9, 9, 9},
	)
	res, err := NewVectorized(100_000, nil).Run(prices, signals)
	require.NoError(t, err)
	require.Len(t, res.Equity, 3)

	r1 := 0.5*0.05 + 0.5*0.025
	r2 := 0.5*(11/10.5-1) + 0.5*(20/20.5-1)
	assert.Equal(t, 0.0, res.Returns[0])
	assert.InDelta(t, r1, res.Returns[1], 1e-12)
	assert.InDelta(t, r2, res.Returns[2], 1e-12)
	assert.InDelta(t, 100_000*(1+r1)*(1+r2), res.Equity[2], 1e-6)
	assert.Equal(t, res.Equity[2], res.FinalEquity())

	_, err = NewVectorized(0, nil).Run(&model.Panel{}, signals)
	assert.ErrorIs(t, err, ErrNoInstruments)
}

func TestVectorizedAlignsOnCommonDates(t *testing.T) {
	prices := panelOf(t, []string{"A"}, []float64{10, 11, 12, 13})
	signals, err := model.NewPanel([]time.Time{day(2), day(4)}, []string{"A"}, [][]float64{{1}, {1}})
	require.NoError(t, err)

	res, err := NewVectorized(1000, nil).Run(prices, signals)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2), day(4)}, res.Dates)
	assert.InDelta(t, 13.0/11-1, res.Returns[1], 1e-12)
}
