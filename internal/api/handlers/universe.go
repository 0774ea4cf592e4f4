package handlers

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"quant-backtest/internal/api/models"
	"quant-backtest/internal/data"
)

// UniverseHandler serves the instrument universe file.
type UniverseHandler struct {
	path string
}

// NewUniverseHandler reads the universe from path, or the default
// location when path is empty.
func NewUniverseHandler(path string) *UniverseHandler {
	if path == "" {
		path = data.DefaultUniversePath()
	}
	return &UniverseHandler{path: path}
}

// ListUniverse handles GET /api/v1/universe
// Supports ?bist100=true to return index members only.
func (h *UniverseHandler) ListUniverse(c *gin.Context) {
	u, err := data.LoadUniverse(h.path)
	if err != nil {
		// If file doesn't exist, return empty list (not an error)
		if errors.Is(err, fs.ErrNotExist) {
			c.JSON(http.StatusOK, gin.H{"instruments": []models.InstrumentInfo{}, "count": 0})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "UNIVERSE_LOAD_ERROR",
				Message: fmt.Sprintf("Failed to load universe: %v", err),
			},
		})
		return
	}

	onlyIndex := c.Query("bist100") == "true"
	instruments := make([]models.InstrumentInfo, 0, len(u.Instruments))
	for _, in := range u.Instruments {
		if onlyIndex && !in.BIST100 {
			continue
		}
		instruments = append(instruments, models.InstrumentInfo{
			Ticker:   in.Ticker,
			Name:     in.Name,
			Exchange: in.Exchange,
			Currency: in.Currency,
			Type:     in.Type,
			BIST100:  in.BIST100,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"benchmark":   u.Benchmark,
		"instruments": instruments,
		"updated_at":  u.UpdatedAt,
		"count":       len(instruments),
	})
}
