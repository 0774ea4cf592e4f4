package backtest

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"quant-backtest/internal/model"
	"quant-backtest/internal/strategy"
)

var (
	ErrEmptyPanel       = errors.New("price panel has no rows")
	ErrNoInstruments    = errors.New("price panel has no instrument columns")
	ErrNoRebalanceDates = errors.New("no rebalance dates fall on trading dates")
	errNilStrategy      = errors.New("strategy is nil")
)

const normalizationEpsilon = 1e-12

// Engine is an event-driven rebalancing simulator. Each Run owns its own
// book, so one Engine may be reused sequentially.
type Engine struct {
	params model.CostParams
	logger *slog.Logger
}

// minHistory is the number of rows a strategy sees before its first trade.
const minHistory = 2

// New returns an engine with the given capital and trading frictions.
// A nil logger discards output.
func New(params model.CostParams, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{params: params, logger: logger}
}

// Params returns the capital and frictions the engine trades with.
func (e *Engine) Params() model.CostParams { return e.params }

// Run replays prices, rebalancing to strat's targets on every anchor date of
// frequency that is also a trading date.
func (e *Engine) Run(prices *model.Panel, strat strategy.Strategy, frequency string) (*Result, error) {
	res, err := e.run(prices, strat, frequency)
	if err != nil {
		e.logger.Error("backtest failed", "err", err)
		return nil, err
	}
	e.logger.Info("backtest finished",
		"points", len(res.Equity),
		"trades", len(res.Trades),
		"final_equity", res.FinalEquity())
	return res, nil
}

func (e *Engine) run(prices *model.Panel, strat strategy.Strategy, frequency string) (*Result, error) {
	if strat == nil {
		return nil, errNilStrategy
	}
	if prices == nil || prices.Len() == 0 {
		return nil, ErrEmptyPanel
	}
	if len(prices.Columns) == 0 {
		return nil, ErrNoInstruments
	}
	if err := prices.Validate(); err != nil {
		return nil, err
	}
	freq, err := strategy.ParseFrequency(frequency)
	if err != nil {
		return nil, err
	}

	panel := prices.Sorted()
	rebalance := strategy.RebalanceDates(freq, panel.Dates)
	if len(rebalance) == 0 {
		return nil, fmt.Errorf("%w (frequency %s)", ErrNoRebalanceDates, freq)
	}
	book, err := model.NewBook(e.params, panel.Columns)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("backtest starting",
		"strategy", strat.Name(),
		"frequency", freq.String(),
		"rows", panel.Len(),
		"instruments", len(panel.Columns),
		"rebalances", len(rebalance))

	res := &Result{RebalanceDates: rebalance}
	last := 0 // row index of last_date
	row := 0
	for _, d := range rebalance {
		for !model.SameDay(panel.Dates[row], d) {
			row++
		}
		if row+1 < minHistory {
			e.logger.Debug("not enough history, skipping rebalance", "date", d)
			continue
		}
		for i := last + 1; i <= row; i++ {
			res.record(panel, i, book)
		}
		last = row

		target := strat.Weights(panel.Head(row + 1))
		if len(target) == 0 {
			e.logger.Debug("no target weights, skipping rebalance", "date", d)
			continue
		}
		weights := NormalizeWeights(target, panel.Columns)
		if err := e.rebalance(res, panel, row, book, weights); err != nil {
			return nil, err
		}
	}

	// Final valuation on the last trading date replaces a pre-trade mark
	// for that date. Days between the last rebalance and the end are not marked.
	end := panel.Len() - 1
	if n := len(res.Equity); n > 0 && model.SameDay(res.Equity[n-1].Date, panel.Dates[end]) {
		res.Equity = res.Equity[:n-1]
		res.Ledger = res.Ledger[:n-1]
	}
	res.record(panel, end, book)

	res.Returns = equityReturns(res.Equity)
	res.FinalCash = book.Cash
	res.FinalPositions = book.Snapshot()
	return res, nil
}

func (e *Engine) rebalance(res *Result, panel *model.Panel, row int, book *model.Book, weights []float64) error {
	quotes := panel.Rows[row]
	value := book.Value(panel.Columns, func(name string) float64 { return quotes[panel.Index(name)] })
	for j, inst := range panel.Columns {
		amount := weights[j]*value - book.HeldValue(inst, quotes[j])
		if math.Abs(amount) < model.MinTradeAmount {
			continue
		}
		fill, err := book.ApplyTrade(inst, quotes[j], amount)
		if err != nil {
			return fmt.Errorf("%s %s: %w", panel.Dates[row].Format("2006-01-02"), inst, err)
		}
		res.Trades = append(res.Trades, TradeRow{Date: panel.Dates[row], Fill: fill})
	}
	return nil
}

// NormalizeWeights orders target by columns and scales it to unit gross
// exposure: w / (sum|w| + 1e-12). Missing instruments get 0 and keys that
// are not columns are ignored.
func NormalizeWeights(target map[string]float64, columns []string) []float64 {
	out := make([]float64, len(columns))
	gross := 0.0
	for j, c := range columns {
		w := target[c]
		if math.IsNaN(w) || math.IsInf(w, 0) {
			w = 0
		}
		out[j] = w
		gross += math.Abs(w)
	}
	for j := range out {
		out[j] /= gross + normalizationEpsilon
	}
	return out
}

func equityReturns(curve []EquityPoint) []float64 {
	out := make([]float64, len(curve))
	for i := 1; i < len(curve); i++ {
		if prev := curve[i-1].Equity; prev != 0 {
			out[i] = curve[i].Equity/prev - 1
		}
	}
	return out
}
