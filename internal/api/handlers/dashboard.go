package handlers

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"quant-backtest/internal/analysis"
	"quant-backtest/internal/api/models"
	"quant-backtest/internal/model"
)

// DashboardHandler serves headline numbers for the most recent backtest.
type DashboardHandler struct {
	runs *RunStore
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(runs *RunStore) *DashboardHandler {
	return &DashboardHandler{runs: runs}
}

// KPIs handles GET /api/kpis
func (h *DashboardHandler) KPIs(c *gin.Context) {
	run, ok := h.latest(c)
	if !ok {
		return
	}
	m := analysis.Analyze(run.Result.Returns, 0)
	positions := 0
	for _, units := range run.Result.FinalPositions {
		if math.Abs(units) > 1e-12 {
			positions++
		}
	}
	c.JSON(http.StatusOK, models.KPIResponse{
		RunID:         run.ID,
		CAGR:          models.Float(m.CAGR * 100),
		Sharpe:        models.Float(m.Sharpe),
		MaxDrawdown:   models.Float(m.MaxDrawdown * 100),
		PositionCount: positions,
	})
}

// EquityCurve handles GET /api/equity-curve
// The benchmark is an equal-weight buy-and-hold of the run's instruments
// bought at the first equity point's value.
func (h *DashboardHandler) EquityCurve(c *gin.Context) {
	run, ok := h.latest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, equityCurve(run))
}

func (h *DashboardHandler) latest(c *gin.Context) (*Run, bool) {
	run, ok := h.runs.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "NO_RUNS",
				Message: "no backtest has been run yet",
			},
		})
		return nil, false
	}
	return run, true
}

func equityCurve(run *Run) []models.CurvePoint {
	equity := run.Result.Equity
	points := make([]models.CurvePoint, 0, len(equity))
	if len(equity) == 0 {
		return points
	}

	prices := run.Prices.Sorted()
	byDay := make(map[time.Time]int, prices.Len())
	for i, d := range prices.Dates {
		byDay[model.DayKey(d)] = i
	}
	capital := equity[0].Equity
	units := make(map[string]float64, len(prices.Columns))
	if anchor, ok := byDay[model.DayKey(equity[0].Date)]; ok {
		for _, name := range prices.Columns {
			if p := prices.Price(anchor, name); p > 0 {
				units[name] = capital / float64(len(prices.Columns)) / p
			}
		}
	}

	for _, e := range equity {
		bench := capital
		if i, ok := byDay[model.DayKey(e.Date)]; ok {
			bench = 0
			for name, u := range units {
				bench += u * prices.Price(i, name)
			}
		}
		points = append(points, models.CurvePoint{
			Date:      e.Date.Format("2006-01-02"),
			Portfolio: e.Equity,
			Benchmark: bench,
		})
	}
	return points
}
