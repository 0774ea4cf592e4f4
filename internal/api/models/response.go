package models

import (
	"math"
	"time"
)

// BacktestResponse represents the response from a backtest run
type BacktestResponse struct {
	ID      string          `json:"id,omitempty"`
	Status  string          `json:"status"`
	Summary BacktestSummary `json:"summary"`
	Equity  []EquityPoint   `json:"equity,omitempty"`
	Ledger  []LedgerRow     `json:"ledger,omitempty"`
	Trades  []TradeRow      `json:"trades,omitempty"`
}

// BacktestSummary contains aggregated backtest results
type BacktestSummary struct {
	Strategy        string             `json:"strategy"`
	InitialCapital  float64            `json:"initial_capital"`
	FinalEquity     float64            `json:"final_equity"`
	FinalCash       float64            `json:"final_cash"`
	FinalPositions  map[string]float64 `json:"final_positions"`
	TotalCommission float64            `json:"total_commission"`
	TotalTrades     int                `json:"total_trades"`
	Rebalances      int                `json:"rebalances"`
	BacktestWindow  TimeWindow         `json:"backtest_window"`
	Metrics         Metrics            `json:"metrics"`
}

// TimeWindow represents a time range
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Metrics are performance statistics; undefined values are null
type Metrics struct {
	Sharpe      *float64 `json:"sharpe"`
	Sortino     *float64 `json:"sortino"`
	MaxDrawdown *float64 `json:"max_drawdown"`
	CAGR        *float64 `json:"cagr"`
	TotalReturn *float64 `json:"total_return"`
	Volatility  *float64 `json:"volatility"`
	Periods     int      `json:"periods"`
}

// EquityPoint is one point of the equity curve
type EquityPoint struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Equity float64 `json:"equity"`
	Return float64 `json:"return"`
}

// LedgerRow represents the book on one equity date
type LedgerRow struct {
	Date      string             `json:"date"`
	Cash      float64            `json:"cash"`
	Positions map[string]float64 `json:"positions"`
	Prices    map[string]float64 `json:"prices"`
	Equity    float64            `json:"equity"`
}

// TradeRow represents one fill
type TradeRow struct {
	Date       string  `json:"date"`
	Instrument string  `json:"instrument"`
	Side       string  `json:"side"` // "BUY", "SELL"
	Amount     float64 `json:"amount"`
	QuotePrice float64 `json:"quote_price"`
	ExecPrice  float64 `json:"exec_price"`
	Units      float64 `json:"units"`
	Commission float64 `json:"commission"`
	CashAfter  float64 `json:"cash_after"`
}

// CompareBacktestResponse represents the response from a comparison
type CompareBacktestResponse struct {
	Comparison []ComparisonResult `json:"comparison"`
}

// ComparisonResult contains results for one variation
type ComparisonResult struct {
	Name    string          `json:"name"`
	Summary BacktestSummary `json:"summary,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// RankResponse represents the response from ranking instruments
type RankResponse struct {
	Rankings []Ranking `json:"rankings"`
}

// Ranking represents one ranked instrument
type Ranking struct {
	Rank         int      `json:"rank"`
	Instrument   string   `json:"instrument"`
	Count        int      `json:"count"`
	FirstPrice   float64  `json:"first_price"`
	LastPrice    float64  `json:"last_price"`
	MeanReturn   *float64 `json:"mean_return"`
	SpreadP95P05 *float64 `json:"spread_p95_p05"`
	OracleReturn *float64 `json:"oracle_return"`
	Metrics      Metrics  `json:"metrics"`
}

// OptimizeResponse holds optimized weights
type OptimizeResponse struct {
	Weights   map[string]float64 `json:"weights"`
	Formatted string             `json:"formatted"`
}

// StressResponse lists scenario outcomes
type StressResponse struct {
	Results []StressResult `json:"results"`
}

// StressResult is one scenario outcome
type StressResult struct {
	Scenario       string  `json:"scenario"`
	Shock          float64 `json:"shock"`
	ExpectedReturn float64 `json:"expected_return"`
}

// PresetInfo represents information about a run configuration preset
type PresetInfo struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	File      string      `json:"file"`
	Frequency string      `json:"frequency,omitempty"`
	Costs     PresetCosts `json:"costs"`
}

// PresetCosts contains the preset's trading frictions; unset values are null
type PresetCosts struct {
	InitialCapital *float64 `json:"initial_capital"`
	CommissionBps  *float64 `json:"commission_bps"`
	SlippageBps    *float64 `json:"slippage_bps"`
}

// StrategyInfo represents information about a strategy
type StrategyInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterInfo `json:"parameters"`
}

// ParameterInfo describes a strategy parameter
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "float", "int", "bool"
	Description string      `json:"description"`
	Default     interface{} `json:"default,omitempty"`
}

// InstrumentInfo represents one universe member
type InstrumentInfo struct {
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
	Type     string `json:"type"`
	BIST100  bool   `json:"bist100"`
}

// KPIResponse is the dashboard headline numbers, in percent where noted
type KPIResponse struct {
	RunID         string   `json:"run_id"`
	CAGR          *float64 `json:"cagr"`         // percent
	Sharpe        *float64 `json:"sharpe"`
	MaxDrawdown   *float64 `json:"max_drawdown"` // percent
	PositionCount int      `json:"position_count"`
}

// CurvePoint is one dashboard equity-curve point
type CurvePoint struct {
	Date      string  `json:"date"`
	Portfolio float64 `json:"portfolio"`
	Benchmark float64 `json:"benchmark"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Float returns nil for NaN and infinities so JSON encoding never fails.
func Float(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
