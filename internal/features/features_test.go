package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-backtest/internal/model"
)

func day(d int) time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d) }

func wavyBars(ticker string, n int) []model.Bar {
	bars := make([]model.Bar, n)
	for i := range bars {
		c := 100 + 10*math.Sin(float64(i)/3) + 0.2*float64(i)
		bars[i] = model.Bar{Date: day(i), Ticker: ticker, Open: c, High: c + 1, Low: c - 1, Close: c, AdjClose: c, Volume: 1000}
	}
	return bars
}

func mean(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func TestGenerate(t *testing.T) {
	// reverse order so Generate has to sort
	bars := append(wavyBars("B", 3), wavyBars("A", 50)...)
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	out, err := NewEngineer(nil).Generate(model.BarsToFrame(bars))
	require.NoError(t, err)
	require.Equal(t, 53, out.Len())
	assert.Equal(t, "A", out.Tickers[0])
	assert.True(t, out.Dates[0].Equal(day(0)))
	for _, c := range Columns {
		assert.True(t, out.Has(c), c)
	}

	closes := out.Column(model.FieldClose)
	ret := out.Column(ColReturn)
	assert.True(t, math.IsNaN(ret[0]))
	assert.InDelta(t, closes[1]/closes[0]-1, ret[1], 1e-12)

	sma := out.Column(ColSMA)
	for i := 0; i < 4; i++ {
		assert.True(t, math.IsNaN(sma[i]), "sma warm-up row %d", i)
	}
	assert.InDelta(t, mean(closes[0:5]), sma[4], 1e-9)
	assert.InDelta(t, mean(closes[45:50]), sma[49], 1e-9)

	rsi := out.Column(ColRSI)
	for i := 0; i < 50; i++ {
		if i < 14 {
			assert.True(t, math.IsNaN(rsi[i]), "rsi warm-up row %d", i)
			continue
		}
		assert.GreaterOrEqual(t, rsi[i], 0.0)
		assert.LessOrEqual(t, rsi[i], 100.0)
	}

	macd, sig, hist := out.Column(ColMACD), out.Column(ColMACDSignal), out.Column(ColMACDHist)
	assert.True(t, math.IsNaN(hist[32]))
	for i := 33; i < 50; i++ {
		assert.InDelta(t, macd[i]-sig[i], hist[i], 1e-9)
	}

	mid, up, lo := out.Column(ColBBMiddle), out.Column(ColBBUpper), out.Column(ColBBLower)
	assert.True(t, math.IsNaN(mid[18]))
	assert.InDelta(t, mean(closes[0:20]), mid[19], 1e-9)
	for i := 19; i < 50; i++ {
		assert.GreaterOrEqual(t, up[i], mid[i])
		assert.LessOrEqual(t, lo[i], mid[i])
	}

	// ticker B is too short for any indicator
	for i := 50; i < 53; i++ {
		assert.Equal(t, "B", out.Tickers[i])
		assert.True(t, math.IsNaN(sma[i]))
		assert.True(t, math.IsNaN(rsi[i]))
		assert.True(t, math.IsNaN(mid[i]))
	}
	assert.False(t, math.IsNaN(ret[51]))

	// MACD signal warm-up is the longest: A keeps rows 33..49, B nothing.
	kept := out.DropNulls()
	require.Equal(t, 50-33, kept.Len())
	for i := 0; i < kept.Len(); i++ {
		assert.Equal(t, "A", kept.Tickers[i])
	}
	assert.True(t, kept.Dates[0].Equal(day(33)))
}

func TestGenerateRequiresClose(t *testing.T) {
	f, err := model.NewFrame([]time.Time{day(0)}, []string{"A"})
	require.NoError(t, err)
	require.NoError(t, f.AddColumn(model.FieldOpen, []float64{1}))
	_, err = NewEngineer(nil).Generate(f)
	assert.ErrorIs(t, err, ErrNoClose)
}

func growthBars(ticker string, n int, start, rate float64) []model.Bar {
	bars := make([]model.Bar, n)
	c := start
	for i := range bars {
		bars[i] = model.Bar{Date: day(i), Ticker: ticker, Close: c, AdjClose: c}
		c *= 1 + rate
	}
	return bars
}

func TestLabelForward(t *testing.T) {
	var bars []model.Bar
	bars = append(bars, growthBars("A", 10, 10, 0.02)...)
	bars = append(bars, growthBars("B", 10, 50, 0)...)
	bars = append(bars, growthBars("XU100", 9, 1000, 0.01)...)

	out, err := LabelForward(model.BarsToFrame(bars), "XU100", 2)
	require.NoError(t, err)
	require.Equal(t, 18, out.Len(), "benchmark rows and the unmatched last date are removed")
	assert.NotContains(t, out.Tickers, "XU100")

	target := out.Column(ColTarget)
	for i := 0; i < 9; i++ {
		assert.Equal(t, "A", out.Tickers[i])
		if i < 7 {
			assert.Equal(t, 1.0, target[i])
		} else {
			assert.True(t, math.IsNaN(target[i]), "row %d has no forward price", i)
		}
	}
	for i := 9; i < 16; i++ {
		assert.Equal(t, 0.0, target[i])
	}
	assert.Equal(t, []string{model.FieldOpen, model.FieldHigh, model.FieldLow, model.FieldClose,
		model.FieldAdjClose, model.FieldVolume, ColTarget}, out.Columns)

	_, err = LabelForward(model.BarsToFrame(bars), "MISSING", 2)
	assert.ErrorIs(t, err, ErrNoBenchmark)
}

func TestJoinSentiment(t *testing.T) {
	f := model.BarsToFrame(append(growthBars("A", 2, 10, 0), growthBars("B", 1, 10, 0)...))
	require.NoError(t, JoinSentiment(f, map[string]float64{"A": 1.5}))
	assert.Equal(t, []float64{1.5, 1.5, 0}, f.Column(ColSentiment))
}
