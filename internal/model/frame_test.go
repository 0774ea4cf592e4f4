package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBars() []Bar {
	return []Bar{
		{Date: day(2), Ticker: "BBB", Close: 21, AdjClose: 21},
		{Date: day(1), Ticker: "AAA", Close: 10, AdjClose: 10},
		{Date: day(1), Ticker: "BBB", Close: 20, AdjClose: 20},
		{Date: day(2), Ticker: "AAA", Close: 11, AdjClose: 11},
		{Date: day(3), Ticker: "AAA", Close: 12, AdjClose: 12},
	}
}

func TestFrameSortAndGroup(t *testing.T) {
	t.Parallel()
	f := BarsToFrame(testBars()).SortByTickerDate()
	assert.Equal(t, []string{"AAA", "AAA", "AAA", "BBB", "BBB"}, f.Tickers)
	assert.Equal(t, []float64{10, 11, 12, 20, 21}, f.Column(FieldClose))
	g := f.GroupByTicker()
	assert.Equal(t, []int{0, 1, 2}, g["AAA"])
	assert.Equal(t, []string{"AAA", "BBB"}, f.TickerNames())
}

func TestFrameDropNullsAndMatrix(t *testing.T) {
	t.Parallel()
	f, err := NewFrame([]time.Time{day(1), day(2), day(3)}, []string{"A", "A", "A"})
	require.NoError(t, err)
	require.NoError(t, f.AddColumn("x", []float64{1, math.NaN(), 3}))
	require.NoError(t, f.AddColumn("y", []float64{4, 5, 6}))
	assert.Error(t, f.AddColumn("z", []float64{1}))

	clean := f.DropNulls()
	assert.Equal(t, 2, clean.Len())
	m, err := clean.Matrix([]string{"y", "x"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{4, 1}, {6, 3}}, m)

	f.Drop("x")
	assert.Equal(t, []string{"y"}, f.Columns)
}

func TestPivotBarsDropsIncompleteDates(t *testing.T) {
	t.Parallel()
	p, err := PivotBars(testBars(), FieldClose)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, p.Columns)
	assert.Equal(t, []time.Time{day(1), day(2)}, p.Dates)
	assert.Equal(t, [][]float64{{10, 20}, {11, 21}}, p.Rows)

	wide, err := BarsToFrame(testBars()).Pivot(FieldClose, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, wide.Len())
	assert.Equal(t, 0.0, wide.Price(2, "BBB"))
}
