package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"quant-backtest/internal/analysis"
	"quant-backtest/internal/api/models"
	"quant-backtest/internal/backtest"
	"quant-backtest/internal/config"
	"quant-backtest/internal/data"
	"quant-backtest/internal/model"
	"quant-backtest/internal/risk"
	"quant-backtest/internal/strategy"
)

// BacktestHandler handles backtest-related requests
type BacktestHandler struct {
	prices    *PriceLoader
	runs      *RunStore
	presetDir string
	logger    *slog.Logger
}

// NewBacktestHandler creates a new backtest handler. Presets named by
// costs_file are looked up in presetDir.
func NewBacktestHandler(prices *PriceLoader, runs *RunStore, presetDir string, logger *slog.Logger) *BacktestHandler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BacktestHandler{prices: prices, runs: runs, presetDir: presetDir, logger: logger}
}

// errInvalidConfig marks failures caused by the request rather than the run.
var errInvalidConfig = errors.New("invalid config")

// RunBacktest handles POST /api/v1/backtest
func (h *BacktestHandler) RunBacktest(c *gin.Context) {
	var req models.BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err)
		return
	}

	panel, ok := h.prices.loadPrices(c, req.DataSource)
	if !ok {
		return
	}

	result, costs, err := h.run(panel, req.Config)
	if err != nil {
		h.writeRunError(c, err)
		return
	}

	run := h.runs.Put(req.Config.Strategy.Name, panel, result)
	response := models.BacktestResponse{
		ID:      run.ID,
		Status:  "completed",
		Summary: h.buildSummary(req.Config.Strategy.Name, costs, result, req.Options.RiskFreeRate),
	}
	if req.Options.IncludeEquity {
		response.Equity = convertEquity(result)
	}
	if req.Options.IncludeLedger {
		response.Ledger = convertLedger(result.Ledger)
	}
	if req.Options.IncludeTrades {
		response.Trades = convertTrades(result.Trades)
	}
	c.JSON(http.StatusOK, response)
}

// GetEquity handles GET /api/v1/backtest/:id/equity
func (h *BacktestHandler) GetEquity(c *gin.Context) {
	run, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":     run.ID,
		"equity": convertEquity(run.Result),
	})
}

// GetLedger handles GET /api/v1/backtest/:id/ledger
func (h *BacktestHandler) GetLedger(c *gin.Context) {
	run, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":     run.ID,
		"ledger": convertLedger(run.Result.Ledger),
		"trades": convertTrades(run.Result.Trades),
	})
}

func (h *BacktestHandler) lookup(c *gin.Context) (*Run, bool) {
	id := c.Param("id")
	run, ok := h.runs.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "RUN_NOT_FOUND",
				Message: fmt.Sprintf("no backtest run %q (runs expire after a while)", id),
			},
		})
		return nil, false
	}
	return run, true
}

// CompareBacktests handles POST /api/v1/backtest/compare
func (h *BacktestHandler) CompareBacktests(c *gin.Context) {
	var req models.CompareBacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err)
		return
	}

	// Fetch data once
	panel, ok := h.prices.loadPrices(c, req.DataSource)
	if !ok {
		return
	}

	comparison := make([]models.ComparisonResult, 0, len(req.Variations))
	for _, variation := range req.Variations {
		merged := mergeConfig(req.BaseConfig, variation.Config)
		result, costs, err := h.run(panel, merged)
		if err != nil {
			h.logger.Warn("comparison variation failed", "variation", variation.Name, "err", err)
			comparison = append(comparison, models.ComparisonResult{Name: variation.Name, Error: err.Error()})
			continue
		}
		comparison = append(comparison, models.ComparisonResult{
			Name:    variation.Name,
			Summary: h.buildSummary(merged.Strategy.Name, costs, result, 0),
		})
	}

	c.JSON(http.StatusOK, models.CompareBacktestResponse{
		Comparison: comparison,
	})
}

// Helper methods

func (h *BacktestHandler) run(panel *model.Panel, req models.BacktestConfig) (*backtest.Result, model.CostParams, error) {
	bt, err := h.buildConfig(req)
	if err != nil {
		return nil, model.CostParams{}, err
	}
	costs := bt.ToCostParams()
	strat, err := h.buildStrategy(panel, bt.Frequency, req.Strategy)
	if err != nil {
		return nil, costs, err
	}
	engine := backtest.New(costs, h.logger)
	result, err := engine.Run(panel, strat, bt.Frequency)
	if err != nil {
		return nil, costs, err
	}
	return result, costs, nil
}

// buildConfig resolves the preset named by costs_file and overlays the
// request's explicit costs onto it.
func (h *BacktestHandler) buildConfig(req models.BacktestConfig) (config.BacktestConfig, error) {
	var base config.BacktestConfig
	if req.CostsFile != "" {
		// costs_file is a preset id, never a path
		if strings.ContainsAny(req.CostsFile, `/\`) || strings.Contains(req.CostsFile, "..") {
			return base, fmt.Errorf("%w: costs_file must be a preset id", errInvalidConfig)
		}
		path := filepath.Join(h.presetDir, req.CostsFile+".yaml")
		loaded, err := config.LoadUnchecked(path)
		if err != nil {
			h.logger.Warn("failed to load preset", "path", path, "err", err)
			return base, fmt.Errorf("%w: unknown preset %q", errInvalidConfig, req.CostsFile)
		}
		base = loaded.Backtest
	}

	bt := config.MergeBacktest(base, config.BacktestConfig{
		InitialCapital: req.Costs.InitialCapital,
		CommissionBps:  req.Costs.CommissionBps,
		SlippageBps:    req.Costs.SlippageBps,
		Frequency:      req.Frequency,
	})
	if bt.Frequency == "" {
		bt.Frequency = config.DefaultFrequency
	}
	if err := bt.ToCostParams().Validate(); err != nil {
		return bt, fmt.Errorf("%w: %v", errInvalidConfig, err)
	}
	return bt, nil
}

func (h *BacktestHandler) buildStrategy(panel *model.Panel, frequency string, req models.StrategyConfig) (strategy.Strategy, error) {
	freq, err := strategy.ParseFrequency(frequency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidConfig, err)
	}
	deps := strategy.Deps{
		Prices:    panel,
		Frequency: freq,
		Optimizer: risk.NewOptimizer(h.logger),
	}
	if len(req.Alpha) > 0 {
		table := strategy.NewAlphaTable()
		for day, scores := range req.Alpha {
			d, err := data.ParseDate(day)
			if err != nil {
				return nil, fmt.Errorf("%w: alpha date: %v", errInvalidConfig, err)
			}
			for ticker, score := range scores {
				table.Set(d, ticker, score)
			}
		}
		deps.Alpha = table
	}
	strat, err := strategy.FromConfig(req.Name, req.Params, deps)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidConfig, err)
	}
	return strat, nil
}

func (h *BacktestHandler) writeRunError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidConfig):
		badRequest(c, "INVALID_CONFIG", err)
	case errors.Is(err, backtest.ErrEmptyPanel),
		errors.Is(err, backtest.ErrNoInstruments),
		errors.Is(err, backtest.ErrNoRebalanceDates):
		badRequest(c, "BACKTEST_ERROR", err)
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "BACKTEST_ERROR",
				Message: err.Error(),
			},
		})
	}
}

func mergeConfig(base, override models.BacktestConfig) models.BacktestConfig {
	merged := base
	if override.CostsFile != "" {
		merged.CostsFile = override.CostsFile
	}
	if override.Costs.InitialCapital != nil {
		merged.Costs.InitialCapital = override.Costs.InitialCapital
	}
	if override.Costs.CommissionBps != nil {
		merged.Costs.CommissionBps = override.Costs.CommissionBps
	}
	if override.Costs.SlippageBps != nil {
		merged.Costs.SlippageBps = override.Costs.SlippageBps
	}
	if override.Frequency != "" {
		merged.Frequency = override.Frequency
	}
	if override.Strategy.Name != "" {
		merged.Strategy = override.Strategy
	}
	return merged
}

func (h *BacktestHandler) buildSummary(name string, costs model.CostParams, result *backtest.Result, riskFree float64) models.BacktestSummary {
	if name == "" {
		name = "equal"
	}
	summary := models.BacktestSummary{
		Strategy:        name,
		InitialCapital:  costs.InitialCapital,
		FinalEquity:     result.FinalEquity(),
		FinalCash:       result.FinalCash,
		FinalPositions:  result.FinalPositions,
		TotalCommission: result.TotalCommission(),
		TotalTrades:     len(result.Trades),
		Rebalances:      len(result.RebalanceDates),
		Metrics:         convertMetrics(analysis.NewAnalyzer(riskFree, h.logger).Analyze(result.Returns)),
	}
	if len(result.Equity) > 0 {
		summary.BacktestWindow = models.TimeWindow{
			Start: result.Equity[0].Date,
			End:   result.Equity[len(result.Equity)-1].Date,
		}
	}
	return summary
}

func convertMetrics(m analysis.Metrics) models.Metrics {
	return models.Metrics{
		Sharpe:      models.Float(m.Sharpe),
		Sortino:     models.Float(m.Sortino),
		MaxDrawdown: models.Float(m.MaxDrawdown),
		CAGR:        models.Float(m.CAGR),
		TotalReturn: models.Float(m.TotalReturn),
		Volatility:  models.Float(m.Volatility),
		Periods:     m.Periods,
	}
}

func convertEquity(result *backtest.Result) []models.EquityPoint {
	out := make([]models.EquityPoint, len(result.Equity))
	for i, p := range result.Equity {
		out[i] = models.EquityPoint{
			Date:   p.Date.Format("2006-01-02"),
			Equity: p.Equity,
		}
		if i < len(result.Returns) {
			out[i].Return = result.Returns[i]
		}
	}
	return out
}

func convertLedger(ledger []backtest.LedgerRow) []models.LedgerRow {
	result := make([]models.LedgerRow, len(ledger))
	for i, row := range ledger {
		result[i] = models.LedgerRow{
			Date:      row.Date.Format("2006-01-02"),
			Cash:      row.Cash,
			Positions: row.Positions,
			Prices:    row.Prices,
			Equity:    row.Equity,
		}
	}
	return result
}

func convertTrades(trades []backtest.TradeRow) []models.TradeRow {
	result := make([]models.TradeRow, len(trades))
	for i, t := range trades {
		result[i] = models.TradeRow{
			Date:       t.Date.Format("2006-01-02"),
			Instrument: t.Instrument,
			Side:       string(t.Side),
			Amount:     t.Amount,
			QuotePrice: t.QuotePrice,
			ExecPrice:  t.ExecPrice,
			Units:      t.Units,
			Commission: t.Commission,
			CashAfter:  t.CashAfter,
		}
	}
	return result
}
