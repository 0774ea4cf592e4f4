package strategy

import (
	"fmt"
	"math"
	"sort"
	"time"

	"quant-backtest/internal/model"
	"quant-backtest/internal/risk"
)

// AlphaTable holds per-date, per-instrument scores, usually classifier
// probabilities. Dates are day keys.
type AlphaTable struct {
	dates  []time.Time
	scores map[time.Time]map[string]float64
}

func NewAlphaTable() *AlphaTable {
	return &AlphaTable{scores: map[time.Time]map[string]float64{}}
}

// AlphaTableFromFrame reads one score column of a (date, ticker) frame.
// NaN scores are skipped.
func AlphaTableFromFrame(f *model.Frame, column string) (*AlphaTable, error) {
	vals := f.Column(column)
	if vals == nil {
		return nil, fmt.Errorf("unknown score column %q", column)
	}
	t := NewAlphaTable()
	for r, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		t.Set(f.Dates[r], f.Tickers[r], v)
	}
	return t, nil
}

// Set records a score; setting the same day twice overwrites it.
func (t *AlphaTable) Set(date time.Time, ticker string, score float64) {
	k := model.DayKey(date)
	row, ok := t.scores[k]
	if !ok {
		row = map[string]float64{}
		t.scores[k] = row
		i := sort.Search(len(t.dates), func(i int) bool { return !t.dates[i].Before(k) })
		t.dates = append(t.dates, time.Time{})
		copy(t.dates[i+1:], t.dates[i:])
		t.dates[i] = k
	}
	row[ticker] = score
}

// At returns the most recent scores known on date, or nil.
func (t *AlphaTable) At(date time.Time) map[string]float64 {
	k := model.DayKey(date)
	i := sort.Search(len(t.dates), func(i int) bool { return t.dates[i].After(k) })
	if i == 0 {
		return nil
	}
	return t.scores[t.dates[i-1]]
}

func (t *AlphaTable) Len() int { return len(t.dates) }

// AlphaSignal turns alpha scores into target weights. With an Optimizer the
// scores are expected returns for a max-Sharpe portfolio over the trailing
// Lookback rows; without one, instruments above Threshold are held in
// proportion to their score.
type AlphaSignal struct {
	Table     *AlphaTable
	Threshold float64
	Lookback  int
	Optimizer *risk.Optimizer
}

func (s *AlphaSignal) Name() string { return "alpha" }

func (s *AlphaSignal) Weights(history *model.Panel) map[string]float64 {
	n := history.Len()
	if n == 0 || s.Table == nil {
		return nil
	}
	scores := s.Table.At(history.Dates[n-1])
	if len(scores) == 0 {
		return nil
	}
	if s.Optimizer != nil {
		lookback := s.Lookback
		if lookback <= 0 || lookback > n {
			lookback = n
		}
		window := &model.Panel{
			Dates:   history.Dates[n-lookback:],
			Columns: history.Columns,
			Rows:    history.Rows[n-lookback:],
		}
		return optimizeOrNil(s.Optimizer, window, scores)
	}

	// nothing above threshold means all zeros, i.e. move to cash
	out := make(map[string]float64, len(history.Columns))
	for _, c := range history.Columns {
		out[c] = 0
		if v, ok := scores[c]; ok && v > s.Threshold {
			out[c] = v
		}
	}
	return out
}
