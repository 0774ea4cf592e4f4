package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"quant-backtest/internal/api/models"
	"quant-backtest/internal/risk"
	"quant-backtest/internal/strategy"
)

// RiskHandler serves portfolio optimization and stress tests.
type RiskHandler struct {
	prices *PriceLoader
	logger *slog.Logger
}

// NewRiskHandler creates a new risk handler
func NewRiskHandler(prices *PriceLoader, logger *slog.Logger) *RiskHandler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RiskHandler{prices: prices, logger: logger}
}

// Optimize handles POST /api/v1/optimize
func (h *RiskHandler) Optimize(c *gin.Context) {
	var req models.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err)
		return
	}

	panel, ok := h.prices.loadPrices(c, req.DataSource)
	if !ok {
		return
	}

	panel = panel.Sorted()
	opt := risk.NewOptimizer(h.logger)
	opt.RiskFreeRate = req.RiskFreeRate
	if req.Gamma != nil {
		if *req.Gamma < 0 {
			badRequest(c, "INVALID_REQUEST", errors.New("gamma must be non-negative"))
			return
		}
		opt.Gamma = *req.Gamma
	}
	alpha := req.Alpha
	if len(alpha) == 0 {
		alpha = strategy.TrailingMean(panel, opt.PeriodsPerYear)
	}

	weights, err := opt.MaxSharpe(panel, alpha)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "OPTIMIZATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.OptimizeResponse{
		Weights:   weights,
		Formatted: risk.FormatWeights(weights),
	})
}

// Stress handles POST /api/v1/stress
func (h *RiskHandler) Stress(c *gin.Context) {
	var req models.StressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err)
		return
	}

	analyzer := risk.NewScenarioAnalyzer(h.logger)
	var results []risk.StressResult
	if req.Scenario == "" {
		results = analyzer.StressAll(req.Weights)
	} else {
		r, err := analyzer.StressTest(req.Weights, req.Scenario)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "UNKNOWN_SCENARIO",
					Message: err.Error(),
					Details: map[string]interface{}{
						"scenarios": risk.ScenarioNames(),
					},
				},
			})
			return
		}
		results = []risk.StressResult{r}
	}

	out := make([]models.StressResult, len(results))
	for i, r := range results {
		out[i] = models.StressResult{
			Scenario:       r.Scenario,
			Shock:          r.Shock,
			ExpectedReturn: r.ExpectedReturn,
		}
	}
	c.JSON(http.StatusOK, models.StressResponse{Results: out})
}

// ListScenarios handles GET /api/v1/scenarios
func (h *RiskHandler) ListScenarios(c *gin.Context) {
	names := risk.ScenarioNames()
	scenarios := make([]gin.H, len(names))
	for i, name := range names {
		scenarios[i] = gin.H{"name": name, "shock": risk.Scenarios[name]}
	}
	c.JSON(http.StatusOK, gin.H{"scenarios": scenarios})
}
