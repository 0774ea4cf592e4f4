package models

// BacktestRequest represents the request body for running a backtest
type BacktestRequest struct {
	DataSource DataSourceConfig `json:"data_source" binding:"required"`
	Config     BacktestConfig   `json:"config" binding:"required"`
	Options    BacktestOptions  `json:"options,omitempty"`
}

// DataSourceConfig defines where prices come from
type DataSourceConfig struct {
	Type      string     `json:"type" binding:"required"` // "inline", "yahoo" or "remote"
	Tickers   []string   `json:"tickers,omitempty"`    // yahoo
	StartDate string     `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate   string     `json:"end_date,omitempty"`   // YYYY-MM-DD
	URL       string     `json:"url,omitempty"`        // remote: raw .csv or .json
	Token     string     `json:"token,omitempty"`      // remote: optional GitHub token
	Prices    *PriceData `json:"prices,omitempty"`     // inline
}

// PriceData is an inline wide price table
type PriceData struct {
	Dates   []string    `json:"dates" binding:"required"`
	Columns []string    `json:"columns" binding:"required"`
	Rows    [][]float64 `json:"rows" binding:"required"`
}

// BacktestConfig contains cost, schedule and strategy configuration
type BacktestConfig struct {
	CostsFile string         `json:"costs_file,omitempty"` // preset id, e.g. "retail"
	Costs     CostConfig     `json:"costs,omitempty"`
	Frequency string         `json:"frequency,omitempty"` // default: W-FRI
	Strategy  StrategyConfig `json:"strategy" binding:"required"`
}

// CostConfig holds optional overrides; unset fields use the preset or defaults
type CostConfig struct {
	InitialCapital *float64 `json:"initial_capital,omitempty"`
	CommissionBps  *float64 `json:"commission_bps,omitempty"`
	SlippageBps    *float64 `json:"slippage_bps,omitempty"`
}

// StrategyConfig defines strategy and its parameters
type StrategyConfig struct {
	Name   string                        `json:"name" binding:"required"`
	Params map[string]interface{}        `json:"params,omitempty"`
	// Alpha scores keyed by date (YYYY-MM-DD) then ticker, for the alpha strategy
	Alpha  map[string]map[string]float64 `json:"alpha,omitempty"`
}

// BacktestOptions contains optional backtest parameters
type BacktestOptions struct {
	IncludeLedger bool    `json:"include_ledger,omitempty"` // default: false
	IncludeTrades bool    `json:"include_trades,omitempty"` // default: false
	IncludeEquity bool    `json:"include_equity,omitempty"` // default: false
	RiskFreeRate  float64 `json:"risk_free_rate,omitempty"` // annual
}

// CompareBacktestRequest represents a request to compare multiple backtests
type CompareBacktestRequest struct {
	DataSource DataSourceConfig    `json:"data_source" binding:"required"`
	BaseConfig BacktestConfig      `json:"base_config" binding:"required"`
	Variations []BacktestVariation `json:"variations" binding:"required"`
}

// BacktestVariation defines a variation to test
type BacktestVariation struct {
	Name   string         `json:"name" binding:"required"`
	Config BacktestConfig `json:"config"`
}

// RankRequest represents a request to rank instruments
type RankRequest struct {
	DataSource   DataSourceConfig `json:"data_source" binding:"required"`
	RiskFreeRate float64          `json:"risk_free_rate,omitempty"`
	Limit        int              `json:"limit,omitempty"` // default: 10
}

// OptimizeRequest asks for max-Sharpe weights
type OptimizeRequest struct {
	DataSource   DataSourceConfig   `json:"data_source" binding:"required"`
	// Alpha holds expected annual returns per ticker; empty uses the
	// annualized trailing mean return
	Alpha        map[string]float64 `json:"alpha,omitempty"`
	Gamma        *float64           `json:"gamma,omitempty"`
	RiskFreeRate float64            `json:"risk_free_rate,omitempty"`
}

// StressRequest applies scenarios to portfolio weights
type StressRequest struct {
	Weights  map[string]float64 `json:"weights" binding:"required"`
	Scenario string             `json:"scenario,omitempty"` // empty runs every scenario
}
