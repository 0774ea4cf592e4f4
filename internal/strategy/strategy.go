package strategy

import "quant-backtest/internal/model"

// Strategy maps the price history up to and including a rebalance date to
// target weights by instrument. An empty map means "no change this period".
type Strategy interface {
	Name() string
	Weights(history *model.Panel) map[string]float64
}

// WeightFunc adapts a plain function to Strategy.
type WeightFunc func(history *model.Panel) map[string]float64

func (f WeightFunc) Name() string { return "func" }

func (f WeightFunc) Weights(history *model.Panel) map[string]float64 { return f(history) }
