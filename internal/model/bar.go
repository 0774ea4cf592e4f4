package model

import (
	"sort"
	"time"
)

// Bar is one end-of-day OHLCV row for a ticker.
type Bar struct {
	Date   time.Time `json:"date"`
	Ticker string    `json:"ticker"`

	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adj_close"`
	Volume   float64 `json:"volume"`
}

// Bar field names as they appear in frames and CSV headers.
const (
	FieldOpen     = "open"
	FieldHigh     = "high"
	FieldLow      = "low"
	FieldClose    = "close"
	FieldAdjClose = "adj_close"
	FieldVolume   = "volume"
)

// BarFields lists the numeric bar fields in output order.
var BarFields = []string{FieldOpen, FieldHigh, FieldLow, FieldClose, FieldAdjClose, FieldVolume}

// Field returns a bar value by name; unknown names yield 0.
func (b Bar) Field(name string) float64 {
	switch name {
	case FieldOpen:
		return b.Open
	case FieldHigh:
		return b.High
	case FieldLow:
		return b.Low
	case FieldClose:
		return b.Close
	case FieldAdjClose:
		return b.AdjClose
	case FieldVolume:
		return b.Volume
	}
	return 0
}

// SortBars orders bars by (ticker, date) in place.
func SortBars(bars []Bar) {
	sort.SliceStable(bars, func(i, j int) bool {
		if bars[i].Ticker != bars[j].Ticker {
			return bars[i].Ticker < bars[j].Ticker
		}
		return bars[i].Date.Before(bars[j].Date)
	})
}

// BarsToFrame converts long-format bars to a frame with one column per bar field.
func BarsToFrame(bars []Bar) *Frame {
	f := &Frame{
		Dates:   make([]time.Time, len(bars)),
		Tickers: make([]string, len(bars)),
	}
	for i, b := range bars {
		f.Dates[i] = b.Date
		f.Tickers[i] = b.Ticker
	}
	for _, name := range BarFields {
		col := make([]float64, len(bars))
		for i, b := range bars {
			col[i] = b.Field(name)
		}
		f.Columns = append(f.Columns, name)
		f.Data = append(f.Data, col)
	}
	return f
}

// PivotBars builds a date x ticker panel of one bar field.
// Dates where any ticker is missing are dropped so the panel stays clean.
func PivotBars(bars []Bar, field string) (*Panel, error) {
	wide, err := BarsToFrame(bars).Pivot(field, 0)
	if err != nil {
		return nil, err
	}
	keepDates := wide.Dates[:0:0]
	keepRows := wide.Rows[:0:0]
	for i, r := range wide.Rows {
		complete := true
		for _, v := range r {
			if v <= 0 {
				complete = false
				break
			}
		}
		if complete {
			keepDates = append(keepDates, wide.Dates[i])
			keepRows = append(keepRows, r)
		}
	}
	return NewPanel(keepDates, wide.Columns, keepRows)
}
