package strategy

import (
	"quant-backtest/internal/model"
	"quant-backtest/internal/risk"
)

// MVO re-optimizes a max-Sharpe portfolio on every rebalance using a
// trailing window of prices. Expected returns are the window's annualized
// mean daily returns.
type MVO struct {
	Lookback  int
	Optimizer *risk.Optimizer
}

func (s *MVO) Name() string { return "mvo" }

func (s *MVO) Weights(history *model.Panel) map[string]float64 {
	lookback := s.Lookback
	if lookback <= 0 {
		lookback = 60
	}
	n := history.Len()
	if n < lookback || n < 3 {
		return nil
	}
	window := &model.Panel{
		Dates:   history.Dates[n-lookback:],
		Columns: history.Columns,
		Rows:    history.Rows[n-lookback:],
	}
	return optimizeOrNil(s.Optimizer, window, TrailingMean(window, s.Optimizer.PeriodsPerYear))
}

// TrailingMean annualizes each column's mean daily return.
func TrailingMean(p *model.Panel, periodsPerYear float64) map[string]float64 {
	rets := p.Returns()
	out := make(map[string]float64, len(p.Columns))
	if len(rets) < 2 {
		return out
	}
	for j, c := range p.Columns {
		total := 0.0
		for _, r := range rets[1:] {
			total += r[j]
		}
		out[c] = total / float64(len(rets)-1) * periodsPerYear
	}
	return out
}

// optimizeOrNil skips the period when no asset has a positive outlook or
// the window is too short to estimate risk.
func optimizeOrNil(opt *risk.Optimizer, prices *model.Panel, alpha map[string]float64) map[string]float64 {
	w, err := opt.MaxSharpe(prices, alpha)
	if err != nil {
		return nil
	}
	return w
}
