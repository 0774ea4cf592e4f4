package features

import (
	"errors"
	"fmt"
	"math"
	"time"

	"quant-backtest/internal/model"
)

// Label columns.
const (
	ColTarget    = "target"
	ColSentiment = "sentiment_score"
)

// DefaultHorizon is the forward window, in rows, used for labels.
const DefaultHorizon = 5

var ErrNoBenchmark = errors.New("benchmark has no rows")

// LabelForward adds a binary target: 1 when a ticker's forward return over
// horizon rows beats the benchmark's over the same rows, 0 otherwise, NaN
// when either forward price is unknown. Benchmark rows and rows on dates the
// benchmark did not trade are removed. The result is sorted by (ticker, date)
// and carries no forward-looking columns besides target.
func LabelForward(f *model.Frame, benchmark string, horizon int) (*model.Frame, error) {
	if f == nil || !f.Has(model.FieldClose) {
		return nil, ErrNoClose
	}
	if horizon <= 0 {
		horizon = DefaultHorizon
	}

	closes := f.Column(model.FieldClose)
	bench := map[time.Time]float64{}
	for r, t := range f.Tickers {
		if t == benchmark {
			bench[model.DayKey(f.Dates[r])] = closes[r]
		}
	}
	if len(bench) == 0 {
		return nil, fmt.Errorf("%s: %w", benchmark, ErrNoBenchmark)
	}

	keep := make([]int, 0, f.Len())
	for r, t := range f.Tickers {
		if t == benchmark {
			continue
		}
		if _, ok := bench[model.DayKey(f.Dates[r])]; ok {
			keep = append(keep, r)
		}
	}
	out := f.Take(keep).SortByTickerDate()

	closes = out.Column(model.FieldClose)
	target := nanSlice(out.Len())
	for _, rows := range out.GroupByTicker() {
		for k := 0; k+horizon < len(rows); k++ {
			now, later := rows[k], rows[k+horizon]
			ret := closes[later]/closes[now] - 1
			bm := bench[model.DayKey(out.Dates[later])]/bench[model.DayKey(out.Dates[now])] - 1
			if math.IsNaN(ret) || math.IsNaN(bm) || math.IsInf(ret, 0) || math.IsInf(bm, 0) {
				continue
			}
			if ret > bm {
				target[now] = 1
			} else {
				target[now] = 0
			}
		}
	}
	if err := out.AddColumn(ColTarget, target); err != nil {
		return nil, err
	}
	return out, nil
}

// JoinSentiment adds sentiment_score per ticker; tickers without a score get 0.
func JoinSentiment(f *model.Frame, scores map[string]float64) error {
	col := make([]float64, f.Len())
	for r, t := range f.Tickers {
		col[r] = scores[t]
	}
	return f.AddColumn(ColSentiment, col)
}
