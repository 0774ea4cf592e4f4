package model

import (
	"errors"
	"math"
)

const (
	DefaultInitialCapital = 100_000.0
	DefaultCommissionBps  = 10.0
	DefaultSlippageBps    = 5.0

	// MinTradeAmount is the smallest |dollar amount| that is worth executing.
	MinTradeAmount = 1e-8
)

// CostParams defines the capital and trading frictions of a simulation.
// Units:
// - InitialCapital: account currency
// - CommissionBps: basis points of traded notional
// - SlippageBps: basis points the execution price moves against the trader
type CostParams struct {
	InitialCapital float64
	CommissionBps  float64
	SlippageBps    float64
}

// DefaultCostParams returns 100k capital, 10bps commission and 5bps slippage.
func DefaultCostParams() CostParams {
	return CostParams{
		InitialCapital: DefaultInitialCapital,
		CommissionBps:  DefaultCommissionBps,
		SlippageBps:    DefaultSlippageBps,
	}
}

func (p CostParams) Validate() error {
	if p.InitialCapital <= 0 || math.IsNaN(p.InitialCapital) {
		return errors.New("InitialCapital must be > 0")
	}
	if p.CommissionBps < 0 || math.IsNaN(p.CommissionBps) {
		return errors.New("CommissionBps must be >= 0")
	}
	if p.SlippageBps < 0 || math.IsNaN(p.SlippageBps) {
		return errors.New("SlippageBps must be >= 0")
	}
	return nil
}

func (p CostParams) commissionRate() float64 { return p.CommissionBps / 10000 }
func (p CostParams) slippageRate() float64   { return p.SlippageBps / 10000 }

// Book captures the mutable cash and unit holdings of a simulated account.
// Units are share counts; price moves never change them.
type Book struct {
	Params CostParams
	Cash   float64
	Units  map[string]float64
}

// NewBook opens a book with all capital in cash and zero units per instrument.
func NewBook(params CostParams, instruments []string) (*Book, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	units := make(map[string]float64, len(instruments))
	for _, inst := range instruments {
		units[inst] = 0
	}
	return &Book{Params: params, Cash: params.InitialCapital, Units: units}, nil
}

// Fill captures what happened when one trade was applied.
type Fill struct {
	Instrument string
	Side       Side
	Amount     float64 // requested dollar amount (signed)
	QuotePrice float64
	ExecPrice  float64 // price after slippage
	Units      float64 // signed units traded
	Notional   float64 // Units * ExecPrice
	Commission float64
	CashAfter  float64
	UnitsAfter float64
}

// ExecutionPrice moves the quote against the trader: buys pay more, sells receive less.
func (b *Book) ExecutionPrice(quote, amount float64) float64 {
	return quote * (1 + b.Params.slippageRate()*SideFromAmount(amount).Sign())
}

// ApplyTrade spends (or receives) amount dollars of instrument at quote.
// The caller is expected to skip amounts below MinTradeAmount.
func (b *Book) ApplyTrade(instrument string, quote, amount float64) (Fill, error) {
	if quote <= 0 || math.IsNaN(quote) {
		return Fill{}, errors.New("quote price must be > 0")
	}
	exec := b.ExecutionPrice(quote, amount)
	units := amount / exec
	notional := units * exec
	commission := math.Abs(notional) * b.Params.commissionRate()

	b.Cash -= notional + commission
	b.Units[instrument] += units

	return Fill{
		Instrument: instrument,
		Side:       SideFromAmount(amount),
		Amount:     amount,
		QuotePrice: quote,
		ExecPrice:  exec,
		Units:      units,
		Notional:   notional,
		Commission: commission,
		CashAfter:  b.Cash,
		UnitsAfter: b.Units[instrument],
	}, nil
}

// HeldValue is units * price for one instrument.
func (b *Book) HeldValue(instrument string, price float64) float64 {
	return b.Units[instrument] * price
}

// Value returns cash plus the marked value of every holding.
func (b *Book) Value(instruments []string, priceOf func(string) float64) float64 {
	total := b.Cash
	for _, inst := range instruments {
		total += b.Units[inst] * priceOf(inst)
	}
	return total
}

// Snapshot copies the unit holdings.
func (b *Book) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(b.Units))
	for k, v := range b.Units {
		out[k] = v
	}
	return out
}
