package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// DateColumn is the name of the date column in tabular inputs.
const DateColumn = "date"

// Panel is a wide price table: one row per trading date, one column per instrument.
// The date lives in Dates, so Columns never contains DateColumn.
type Panel struct {
	Dates   []time.Time
	Columns []string
	Rows    [][]float64
}

// NewPanel builds a panel and checks that it is rectangular.
func NewPanel(dates []time.Time, columns []string, rows [][]float64) (*Panel, error) {
	p := &Panel{Dates: dates, Columns: columns, Rows: rows}
	if err := p.checkShape(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Panel) checkShape() error {
	if len(p.Dates) != len(p.Rows) {
		return fmt.Errorf("panel has %d dates but %d rows", len(p.Dates), len(p.Rows))
	}
	for i, r := range p.Rows {
		if len(r) != len(p.Columns) {
			return fmt.Errorf("panel row %d has %d values, want %d", i, len(r), len(p.Columns))
		}
	}
	return nil
}

// Validate checks shape, at least one instrument and strictly positive prices.
func (p *Panel) Validate() error {
	if p == nil {
		return errors.New("panel is nil")
	}
	if err := p.checkShape(); err != nil {
		return err
	}
	if len(p.Columns) == 0 {
		return errors.New("panel has no instrument columns")
	}
	for i, r := range p.Rows {
		for j, v := range r {
			if !(v > 0) || math.IsInf(v, 0) {
				return fmt.Errorf("panel %s on %s: price %v must be > 0",
					p.Columns[j], p.Dates[i].Format("2006-01-02"), v)
			}
		}
	}
	return nil
}

func (p *Panel) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Dates)
}

// Index returns the column position of name, or -1.
func (p *Panel) Index(name string) int {
	for i, c := range p.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of one instrument's prices, or nil if unknown.
func (p *Panel) Column(name string) []float64 {
	j := p.Index(name)
	if j < 0 {
		return nil
	}
	out := make([]float64, len(p.Rows))
	for i, r := range p.Rows {
		out[i] = r[j]
	}
	return out
}

// Price returns the price of name on row i (NaN if unknown).
func (p *Panel) Price(i int, name string) float64 {
	j := p.Index(name)
	if j < 0 || i < 0 || i >= len(p.Rows) {
		return math.NaN()
	}
	return p.Rows[i][j]
}

// RowMap returns row i keyed by instrument.
func (p *Panel) RowMap(i int) map[string]float64 {
	out := make(map[string]float64, len(p.Columns))
	for j, c := range p.Columns {
		out[c] = p.Rows[i][j]
	}
	return out
}

// Sorted returns a copy ordered by ascending date.
func (p *Panel) Sorted() *Panel {
	idx := make([]int, len(p.Dates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return p.Dates[idx[a]].Before(p.Dates[idx[b]])
	})
	out := &Panel{
		Dates:   make([]time.Time, len(idx)),
		Columns: append([]string(nil), p.Columns...),
		Rows:    make([][]float64, len(idx)),
	}
	for k, i := range idx {
		out.Dates[k] = p.Dates[i]
		out.Rows[k] = append([]float64(nil), p.Rows[i]...)
	}
	return out
}

// Head returns a view of the first n rows (history up to and including row n-1).
// Rows are shared with the receiver and must not be mutated.
func (p *Panel) Head(n int) *Panel {
	if n > len(p.Dates) {
		n = len(p.Dates)
	}
	if n < 0 {
		n = 0
	}
	return &Panel{Dates: p.Dates[:n], Columns: p.Columns, Rows: p.Rows[:n]}
}

// Select keeps only the named columns, in the given order.
func (p *Panel) Select(columns ...string) (*Panel, error) {
	pos := make([]int, len(columns))
	for k, c := range columns {
		j := p.Index(c)
		if j < 0 {
			return nil, fmt.Errorf("unknown column %q", c)
		}
		pos[k] = j
	}
	out := &Panel{
		Dates:   append([]time.Time(nil), p.Dates...),
		Columns: append([]string(nil), columns...),
		Rows:    make([][]float64, len(p.Rows)),
	}
	for i, r := range p.Rows {
		row := make([]float64, len(pos))
		for k, j := range pos {
			row[k] = r[j]
		}
		out.Rows[i] = row
	}
	return out, nil
}

// Returns computes the period-over-period percentage change per column.
// The first row is zero.
func (p *Panel) Returns() [][]float64 {
	out := make([][]float64, len(p.Rows))
	for i := range p.Rows {
		out[i] = make([]float64, len(p.Columns))
		if i == 0 {
			continue
		}
		for j := range p.Columns {
			prev := p.Rows[i-1][j]
			if prev == 0 || math.IsNaN(prev) || math.IsNaN(p.Rows[i][j]) {
				continue
			}
			out[i][j] = p.Rows[i][j]/prev - 1
		}
	}
	return out
}

// DayKey truncates a timestamp to its calendar day in its own location.
func DayKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
