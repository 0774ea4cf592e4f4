package strategy

import "quant-backtest/internal/model"

// EqualWeight holds 1/N of the portfolio in every instrument.
type EqualWeight struct{}

func (EqualWeight) Name() string { return "equal" }

func (EqualWeight) Weights(history *model.Panel) map[string]float64 {
	n := len(history.Columns)
	if n == 0 {
		return nil
	}
	out := make(map[string]float64, n)
	for _, c := range history.Columns {
		out[c] = 1 / float64(n)
	}
	return out
}

// FixedWeights returns the same target on every rebalance.
// Weights need not sum to one; the backtester renormalizes them.
type FixedWeights struct {
	Targets map[string]float64
}

func (s *FixedWeights) Name() string { return "fixed" }

func (s *FixedWeights) Weights(*model.Panel) map[string]float64 {
	out := make(map[string]float64, len(s.Targets))
	for k, v := range s.Targets {
		out[k] = v
	}
	return out
}
