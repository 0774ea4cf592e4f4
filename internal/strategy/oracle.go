package strategy

import (
	"fmt"
	"math"

	"quant-backtest/internal/model"
)

// OracleStrategy is a "perfect foresight" upper bound. Given the full price
// panel and the rebalance schedule up-front, it puts the whole portfolio into
// the instrument with the best return until the next rebalance date.
//
// Notes:
// - This is a ranking/benchmark tool, never a tradable strategy.
// - Lookahead is the point: compare real strategies against it.
type OracleStrategy struct {
	plan map[int]map[string]float64 // keyed by row index of the rebalance date
}

func NewOracleStrategy(prices *model.Panel, freq Frequency) (*OracleStrategy, error) {
	if prices.Len() == 0 {
		return nil, fmt.Errorf("no prices")
	}
	sorted := prices.Sorted()
	dates := RebalanceDates(freq, sorted.Dates)
	if len(dates) == 0 {
		return nil, fmt.Errorf("no rebalance dates for %s", freq)
	}

	rowOf := make(map[int64]int, sorted.Len())
	for i, d := range sorted.Dates {
		rowOf[model.DayKey(d).Unix()] = i
	}
	plan := make(map[int]map[string]float64, len(dates))
	for k, d := range dates {
		from := rowOf[model.DayKey(d).Unix()]
		to := sorted.Len() - 1
		if k+1 < len(dates) {
			to = rowOf[model.DayKey(dates[k+1]).Unix()]
		}
		best, bestRet := "", math.Inf(-1)
		for j, c := range sorted.Columns {
			r := sorted.Rows[to][j]/sorted.Rows[from][j] - 1
			if r > bestRet {
				best, bestRet = c, r
			}
		}
		w := make(map[string]float64, len(sorted.Columns))
		for _, c := range sorted.Columns {
			w[c] = 0
		}
		w[best] = 1
		plan[from] = w
	}
	return &OracleStrategy{plan: plan}, nil
}

func (s *OracleStrategy) Name() string { return "oracle" }

func (s *OracleStrategy) Weights(history *model.Panel) map[string]float64 {
	return s.plan[history.Len()-1]
}
