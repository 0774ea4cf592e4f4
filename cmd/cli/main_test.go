package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-backtest/internal/model"
)

func TestParseWeights(t *testing.T) {
	w, err := parseWeights([]string{"AKBNK.IS=0.6", " GARAN.IS = 0.4 "})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AKBNK.IS": 0.6, "GARAN.IS": 0.4}, w)

	_, err = parseWeights([]string{"AKBNK.IS"})
	assert.Error(t, err)
	_, err = parseWeights([]string{"AKBNK.IS=abc"})
	assert.Error(t, err)
}

func TestConstantSignals(t *testing.T) {
	d0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	prices, err := model.NewPanel(
		[]time.Time{d0, d0.AddDate(0, 0, 1)},
		[]string{"A", "B"},
		[][]float64{{1, 2}, {3, 4}},
	)
	require.NoError(t, err)

	sig, err := constantSignals(prices, map[string]float64{"B": 0.25, "A": 0.75})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, sig.Columns)
	assert.Equal(t, [][]float64{{0.75, 0.25}, {0.75, 0.25}}, sig.Rows)
	assert.Equal(t, prices.Dates, sig.Dates)
}

func TestTradablePricesDropsBenchmark(t *testing.T) {
	d0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	var bars []model.Bar
	for i := 0; i < 3; i++ {
		d := d0.AddDate(0, 0, i)
		bars = append(bars,
			model.Bar{Date: d, Ticker: "A", Close: 10 + float64(i)},
			model.Bar{Date: d, Ticker: "B", Close: 20 + float64(i)},
		)
		if i < 2 {
			bars = append(bars, model.Bar{Date: d, Ticker: defaultBenchmark, Close: 100})
		}
	}

	prices, err := tradablePrices(bars, defaultBenchmark)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, prices.Columns)
	assert.Equal(t, 2, prices.Len(), "dates without a benchmark close are dropped")
	assert.Equal(t, 11.0, prices.Price(1, "A"))
}

func TestDataWindowDefaultsToOneYear(t *testing.T) {
	start, end, err := dataWindow("", "2024-06-30")
	require.NoError(t, err)
	assert.Equal(t, end.AddDate(-1, 0, 0), start)

	_, _, err = dataWindow("bad", "")
	assert.Error(t, err)
}
