package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"quant-backtest/internal/analysis"
	"quant-backtest/internal/api/models"
)

// RankHandler handles ranking-related requests
type RankHandler struct {
	prices *PriceLoader
}

// NewRankHandler creates a new rank handler
func NewRankHandler(prices *PriceLoader) *RankHandler {
	return &RankHandler{prices: prices}
}

// RankInstruments handles POST /api/v1/rank
func (h *RankHandler) RankInstruments(c *gin.Context) {
	var req models.RankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err)
		return
	}

	panel, ok := h.prices.loadPrices(c, req.DataSource)
	if !ok {
		return
	}

	ranked := analysis.RankInstruments(panel, req.RiskFreeRate)

	// Apply limit
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > len(ranked) {
		limit = len(ranked)
	}
	ranked = ranked[:limit]

	rankings := make([]models.Ranking, len(ranked))
	for i, r := range ranked {
		rankings[i] = models.Ranking{
			Rank:         r.Rank,
			Instrument:   r.Instrument,
			Count:        r.Count,
			FirstPrice:   r.FirstPrice,
			LastPrice:    r.LastPrice,
			MeanReturn:   models.Float(r.MeanReturn),
			SpreadP95P05: models.Float(r.SpreadP95P05),
			OracleReturn: models.Float(r.OracleReturn),
			Metrics:      convertMetrics(r.Metrics),
		}
	}

	c.JSON(http.StatusOK, models.RankResponse{Rankings: rankings})
}
