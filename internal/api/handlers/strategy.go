package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"quant-backtest/internal/api/models"
	"quant-backtest/internal/strategy"
)

// StrategyHandler handles strategy-related requests
type StrategyHandler struct{}

// NewStrategyHandler creates a new strategy handler
func NewStrategyHandler() *StrategyHandler {
	return &StrategyHandler{}
}

// ListStrategies handles GET /api/v1/strategies
func (h *StrategyHandler) ListStrategies(c *gin.Context) {
	catalog := strategy.Catalog()
	strategies := make([]models.StrategyInfo, len(catalog))
	for i, s := range catalog {
		params := make([]models.ParameterInfo, len(s.Parameters))
		for j, p := range s.Parameters {
			params[j] = models.ParameterInfo{
				Name:        p.Name,
				Type:        p.Type,
				Description: p.Description,
				Default:     p.Default,
			}
		}
		strategies[i] = models.StrategyInfo{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  params,
		}
	}
	c.JSON(http.StatusOK, gin.H{"strategies": strategies})
}
