package analysis

import (
	"io"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PeriodsPerYear annualizes daily statistics.
const PeriodsPerYear = 252

// Metrics summarizes a return series. Undefined statistics are NaN.
type Metrics struct {
	Sharpe      float64
	Sortino     float64
	MaxDrawdown float64 // <= 0
	CAGR        float64
	TotalReturn float64
	Volatility  float64 // annualized
	Periods     int
}

// Analyze computes performance statistics for per-period returns. NaN
// returns count as 0 and riskFree is an annual rate.
func Analyze(returns []float64, riskFree float64) Metrics {
	m := Metrics{
		Sharpe:      math.NaN(),
		Sortino:     math.NaN(),
		MaxDrawdown: math.NaN(),
		CAGR:        math.NaN(),
		TotalReturn: math.NaN(),
		Volatility:  math.NaN(),
		Periods:     len(returns),
	}
	if len(returns) == 0 {
		return m
	}
	r := make([]float64, len(returns))
	for i, v := range returns {
		if !math.IsNaN(v) {
			r[i] = v
		}
	}

	annual := math.Sqrt(PeriodsPerYear)
	meanExcess := stat.Mean(r, nil) - riskFree/PeriodsPerYear
	if len(r) > 1 {
		std := stat.StdDev(r, nil)
		m.Volatility = std * annual
		if std > 0 {
			m.Sharpe = meanExcess / std * annual
		}
	}

	var downside []float64
	for _, v := range r {
		if v < 0 {
			downside = append(downside, v)
		}
	}
	if len(downside) > 1 {
		if dd := stat.StdDev(downside, nil); dd > 0 {
			m.Sortino = meanExcess / dd * annual
		}
	}

	growth := make([]float64, len(r))
	for i, v := range r {
		growth[i] = 1 + v
	}
	floats.CumProd(growth, growth)
	m.MaxDrawdown = maxDrawdown(growth)

	final := growth[len(growth)-1]
	m.TotalReturn = final - 1
	years := float64(len(r)) / PeriodsPerYear
	if final > 0 {
		m.CAGR = math.Pow(final, 1/years) - 1
	}
	return m
}

func maxDrawdown(equity []float64) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if dd := v/peak - 1; dd < worst {
			worst = dd
		}
	}
	return worst
}

// Analyzer logs the metrics it computes.
type Analyzer struct {
	RiskFree float64
	logger   *slog.Logger
}

func NewAnalyzer(riskFree float64, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Analyzer{RiskFree: riskFree, logger: logger}
}

func (a *Analyzer) Analyze(returns []float64) Metrics {
	m := Analyze(returns, a.RiskFree)
	a.logger.Info("performance",
		"sharpe", m.Sharpe,
		"sortino", m.Sortino,
		"max_drawdown_pct", m.MaxDrawdown*100,
		"cagr_pct", m.CAGR*100,
		"periods", m.Periods)
	return m
}
