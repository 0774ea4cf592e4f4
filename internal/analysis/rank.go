package analysis

import (
	"math"
	"sort"

	"quant-backtest/internal/model"
)

type RankedInstrument struct {
	Rank int `json:"rank"`
	InstrumentSummary
}

// RankInstruments summarizes every panel column and sorts descending by
// Sharpe. Instruments with an undefined Sharpe go last, by name.
func RankInstruments(prices *model.Panel, riskFree float64) []RankedInstrument {
	out := make([]RankedInstrument, 0, len(prices.Columns))
	for _, c := range prices.Columns {
		out = append(out, RankedInstrument{InstrumentSummary: Summarize(prices, c, riskFree)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Metrics.Sharpe, out[j].Metrics.Sharpe
		switch {
		case math.IsNaN(a) && math.IsNaN(b):
			return out[i].Instrument < out[j].Instrument
		case math.IsNaN(a):
			return false
		case math.IsNaN(b):
			return true
		}
		return a > b
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
