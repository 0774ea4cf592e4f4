package data

import "quant-backtest/internal/model"

// IsBIST100Column flags BIST100 constituents in a frame.
const IsBIST100Column = "is_bist100"

var bist100 = []string{
	"AKBNK.IS",
	"ARCLK.IS",
	"ASELS.IS",
	"GARAN.IS",
	"THYAO.IS",
	"EREGL.IS",
	"TUPRS.IS",
	"SAHOL.IS",
	"KCHOL.IS",
}

// BIST100Constituents returns a static subset of the BIST100 index.
func BIST100Constituents() []string {
	return append([]string(nil), bist100...)
}

// MarkBIST100 adds is_bist100 (1 or 0) to every row.
func MarkBIST100(f *model.Frame) error {
	member := make(map[string]bool, len(bist100))
	for _, t := range bist100 {
		member[t] = true
	}
	col := make([]float64, f.Len())
	for i, t := range f.Tickers {
		if member[t] {
			col[i] = 1
		}
	}
	return f.AddColumn(IsBIST100Column, col)
}
