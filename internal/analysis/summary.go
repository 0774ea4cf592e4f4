package analysis

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"quant-backtest/internal/model"
)

// InstrumentSummary is an instrument-level summary you can use for ranking.
// It includes daily return stats, performance metrics and a perfect-timing
// long/flat return as an upper bound.
type InstrumentSummary struct {
	Instrument string `json:"instrument"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Count int       `json:"count"`

	FirstPrice float64 `json:"first_price"`
	LastPrice  float64 `json:"last_price"`

	MeanReturn   float64 `json:"mean_return"`
	P05Return    float64 `json:"p05_return"`
	P95Return    float64 `json:"p95_return"`
	SpreadP95P05 float64 `json:"spread_p95_p05"`

	// OracleReturn compounds every positive daily return and skips every
	// negative one.
	OracleReturn float64 `json:"oracle_return"`

	Metrics Metrics `json:"metrics"`
}

// Summarize computes the summary of one panel column.
func Summarize(prices *model.Panel, instrument string, riskFree float64) InstrumentSummary {
	s := InstrumentSummary{Instrument: instrument}
	col := prices.Column(instrument)
	if len(col) == 0 {
		s.Metrics = Analyze(nil, riskFree)
		return s
	}
	s.Count = len(col)
	s.Start = prices.Dates[0]
	s.End = prices.Dates[len(prices.Dates)-1]
	s.FirstPrice = col[0]
	s.LastPrice = col[len(col)-1]

	rets := make([]float64, 0, len(col))
	for i := 1; i < len(col); i++ {
		if col[i-1] > 0 {
			rets = append(rets, col[i]/col[i-1]-1)
		} else {
			rets = append(rets, 0)
		}
	}
	s.Metrics = Analyze(rets, riskFree)
	if len(rets) == 0 {
		s.MeanReturn, s.P05Return, s.P95Return, s.SpreadP95P05 = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return s
	}

	s.MeanReturn = stat.Mean(rets, nil)
	sorted := append([]float64(nil), rets...)
	sort.Float64s(sorted)
	s.P05Return = stat.Quantile(0.05, stat.LinInterp, sorted, nil)
	s.P95Return = stat.Quantile(0.95, stat.LinInterp, sorted, nil)
	s.SpreadP95P05 = s.P95Return - s.P05Return

	growth := 1.0
	for _, r := range rets {
		if r > 0 {
			growth *= 1 + r
		}
	}
	s.OracleReturn = growth - 1
	return s
}
