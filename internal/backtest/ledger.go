package backtest

import (
	"time"

	"quant-backtest/internal/model"
)

// EquityPoint is one (date, portfolio value) observation.
type EquityPoint struct {
	Date   time.Time
	Equity float64
}

// LedgerRow is the book state behind one equity point.
// Equity == Cash + sum(Positions[i] * Prices[i]) holds for every row.
type LedgerRow struct {
	Date      time.Time
	Cash      float64
	Positions map[string]float64
	Prices    map[string]float64
	Equity    float64
}

// TradeRow is a fill made on a rebalance date.
type TradeRow struct {
	Date time.Time
	model.Fill
}

type Result struct {
	Equity  []EquityPoint
	Returns []float64 // pct change of Equity, first element 0

	Ledger []LedgerRow
	Trades []TradeRow

	RebalanceDates []time.Time
	FinalCash      float64
	FinalPositions map[string]float64
}

// FinalEquity is the last equity value, or 0 for an empty result.
func (r *Result) FinalEquity() float64 {
	if len(r.Equity) == 0 {
		return 0
	}
	return r.Equity[len(r.Equity)-1].Equity
}

// TotalCommission sums commission paid over every trade.
func (r *Result) TotalCommission() float64 {
	total := 0.0
	for _, t := range r.Trades {
		total += t.Commission
	}
	return total
}

func (r *Result) record(panel *model.Panel, i int, book *model.Book) {
	prices := panel.RowMap(i)
	equity := book.Value(panel.Columns, func(name string) float64 { return prices[name] })
	r.Equity = append(r.Equity, EquityPoint{Date: panel.Dates[i], Equity: equity})
	r.Ledger = append(r.Ledger, LedgerRow{
		Date:      panel.Dates[i],
		Cash:      book.Cash,
		Positions: book.Snapshot(),
		Prices:    prices,
		Equity:    equity,
	})
}
