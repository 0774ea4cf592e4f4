package model

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Frame is a column-oriented numeric table with one row per (Date, Ticker).
// NaN marks a null value.
type Frame struct {
	Dates   []time.Time
	Tickers []string
	Columns []string
	Data    [][]float64 // Data[col][row]
}

// NewFrame creates an empty frame keyed by dates and tickers.
func NewFrame(dates []time.Time, tickers []string) (*Frame, error) {
	if len(dates) != len(tickers) {
		return nil, fmt.Errorf("frame has %d dates but %d tickers", len(dates), len(tickers))
	}
	return &Frame{Dates: dates, Tickers: tickers}, nil
}

func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Dates)
}

func (f *Frame) Has(name string) bool { return f.ColumnIndex(name) >= 0 }

func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the backing slice of a column, or nil.
func (f *Frame) Column(name string) []float64 {
	i := f.ColumnIndex(name)
	if i < 0 {
		return nil
	}
	return f.Data[i]
}

// AddColumn appends or replaces a column.
func (f *Frame) AddColumn(name string, values []float64) error {
	if len(values) != f.Len() {
		return fmt.Errorf("column %q has %d values, frame has %d rows", name, len(values), f.Len())
	}
	if i := f.ColumnIndex(name); i >= 0 {
		f.Data[i] = values
		return nil
	}
	f.Columns = append(f.Columns, name)
	f.Data = append(f.Data, values)
	return nil
}

// Drop removes the named columns; unknown names are ignored.
func (f *Frame) Drop(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	cols := f.Columns[:0:0]
	data := f.Data[:0:0]
	for i, c := range f.Columns {
		if drop[c] {
			continue
		}
		cols = append(cols, c)
		data = append(data, f.Data[i])
	}
	f.Columns = cols
	f.Data = data
}

// Take returns a new frame holding the given rows in order.
func (f *Frame) Take(rows []int) *Frame {
	out := &Frame{
		Dates:   make([]time.Time, len(rows)),
		Tickers: make([]string, len(rows)),
		Columns: append([]string(nil), f.Columns...),
		Data:    make([][]float64, len(f.Columns)),
	}
	for c := range f.Columns {
		out.Data[c] = make([]float64, len(rows))
	}
	for k, r := range rows {
		out.Dates[k] = f.Dates[r]
		out.Tickers[k] = f.Tickers[r]
		for c := range f.Columns {
			out.Data[c][k] = f.Data[c][r]
		}
	}
	return out
}

// DropNulls keeps rows without any NaN value.
func (f *Frame) DropNulls() *Frame {
	keep := make([]int, 0, f.Len())
	for r := 0; r < f.Len(); r++ {
		ok := true
		for c := range f.Columns {
			if math.IsNaN(f.Data[c][r]) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, r)
		}
	}
	return f.Take(keep)
}

// SortByTickerDate returns a copy ordered by (ticker, date).
func (f *Frame) SortByTickerDate() *Frame {
	idx := f.rowIndex()
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if f.Tickers[ia] != f.Tickers[ib] {
			return f.Tickers[ia] < f.Tickers[ib]
		}
		return f.Dates[ia].Before(f.Dates[ib])
	})
	return f.Take(idx)
}

// SortByDate returns a copy ordered by date only (stable on ticker order).
func (f *Frame) SortByDate() *Frame {
	idx := f.rowIndex()
	sort.SliceStable(idx, func(a, b int) bool {
		return f.Dates[idx[a]].Before(f.Dates[idx[b]])
	})
	return f.Take(idx)
}

func (f *Frame) rowIndex() []int {
	idx := make([]int, f.Len())
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// GroupByTicker returns row positions per ticker, in frame order.
func (f *Frame) GroupByTicker() map[string][]int {
	out := map[string][]int{}
	for r, t := range f.Tickers {
		out[t] = append(out[t], r)
	}
	return out
}

// TickerNames returns the distinct tickers sorted by name.
func (f *Frame) TickerNames() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range f.Tickers {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// Matrix returns a row-major design matrix for the given columns.
func (f *Frame) Matrix(columns []string) ([][]float64, error) {
	pos := make([]int, len(columns))
	for k, c := range columns {
		i := f.ColumnIndex(c)
		if i < 0 {
			return nil, fmt.Errorf("unknown column %q", c)
		}
		pos[k] = i
	}
	out := make([][]float64, f.Len())
	for r := range out {
		row := make([]float64, len(pos))
		for k, i := range pos {
			row[k] = f.Data[i][r]
		}
		out[r] = row
	}
	return out, nil
}

// Pivot turns one column into a wide date x ticker panel.
// Missing (date, ticker) cells get fill.
func (f *Frame) Pivot(column string, fill float64) (*Panel, error) {
	vals := f.Column(column)
	if vals == nil {
		return nil, fmt.Errorf("unknown column %q", column)
	}
	tickers := f.TickerNames()
	pos := make(map[string]int, len(tickers))
	for j, t := range tickers {
		pos[t] = j
	}
	var dates []time.Time
	rowOf := map[time.Time]int{}
	for _, d := range f.Dates {
		k := DayKey(d)
		if _, ok := rowOf[k]; !ok {
			rowOf[k] = -1
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(a, b int) bool { return dates[a].Before(dates[b]) })
	rows := make([][]float64, len(dates))
	for i, d := range dates {
		rowOf[DayKey(d)] = i
		rows[i] = make([]float64, len(tickers))
		for j := range rows[i] {
			rows[i][j] = fill
		}
	}
	for r, d := range f.Dates {
		rows[rowOf[DayKey(d)]][pos[f.Tickers[r]]] = vals[r]
	}
	return NewPanel(dates, tickers, rows)
}
