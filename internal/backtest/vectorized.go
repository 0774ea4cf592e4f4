package backtest

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"quant-backtest/internal/model"
)

// Vectorized is a frictionless signal backtest: yesterday's weights times
// today's returns, compounded from InitialCapital.
type Vectorized struct {
	InitialCapital float64
	logger         *slog.Logger
}

func NewVectorized(initialCapital float64, logger *slog.Logger) *Vectorized {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if initialCapital <= 0 {
		initialCapital = model.DefaultInitialCapital
	}
	return &Vectorized{InitialCapital: initialCapital, logger: logger}
}

// VectorResult holds per-date portfolio returns and equity.
type VectorResult struct {
	Dates   []time.Time
	Returns []float64
	Equity  []float64
}

// FinalEquity is the last equity value, or 0 when there are no dates.
func (r *VectorResult) FinalEquity() float64 {
	if len(r.Equity) == 0 {
		return 0
	}
	return r.Equity[len(r.Equity)-1]
}

// Run aligns prices and signals on common dates, shifts signals by one row
// and sums weight * return per date. Signal columns that are not price
// columns are ignored; price columns without a signal get weight 0.
func (v *Vectorized) Run(prices, signals *model.Panel) (*VectorResult, error) {
	if prices == nil || len(prices.Columns) == 0 {
		v.logger.Error("vectorized backtest failed", "err", ErrNoInstruments)
		return nil, ErrNoInstruments
	}
	if signals == nil {
		return nil, errors.New("signals are nil")
	}
	p := prices.Sorted()
	s := signals.Sorted()

	sigRow := make(map[time.Time]int, s.Len())
	for i, d := range s.Dates {
		sigRow[model.DayKey(d)] = i
	}
	sigCol := make([]int, len(p.Columns))
	for j, c := range p.Columns {
		sigCol[j] = s.Index(c)
	}

	var rows []int  // price rows on common dates
	var sRows []int // matching signal rows
	for i, d := range p.Dates {
		if k, ok := sigRow[model.DayKey(d)]; ok {
			rows = append(rows, i)
			sRows = append(sRows, k)
		}
	}

	out := &VectorResult{
		Dates:   make([]time.Time, len(rows)),
		Returns: make([]float64, len(rows)),
		Equity:  make([]float64, len(rows)),
	}
	equity := v.InitialCapital
	for k, i := range rows {
		out.Dates[k] = p.Dates[i]
		if k > 0 {
			prev, prevSig := p.Rows[rows[k-1]], s.Rows[sRows[k-1]]
			r := 0.0
			for j := range p.Columns {
				if sigCol[j] < 0 || prev[j] == 0 {
					continue
				}
				r += (p.Rows[i][j]/prev[j] - 1) * prevSig[sigCol[j]]
			}
			out.Returns[k] = r
		}
		equity *= 1 + out.Returns[k]
		out.Equity[k] = equity
	}
	v.logger.Info("vectorized backtest finished", "dates", len(rows))
	return out, nil
}
