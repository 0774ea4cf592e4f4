package data

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"quant-backtest/internal/model"
)

// Table is a loosely typed tabular file: a header and string cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// ParseCSVTable reads a CSV with a header row.
func ParseCSVTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("csv has no header")
	}
	return &Table{Columns: records[0], Rows: records[1:]}, nil
}

// ParseJSONTable reads an array of flat objects. Columns are the sorted
// union of keys; missing keys become empty cells.
func ParseJSONTable(r io.Reader) (*Table, error) {
	var objs []map[string]interface{}
	if err := json.NewDecoder(r).Decode(&objs); err != nil {
		return nil, fmt.Errorf("failed to parse json table: %w", err)
	}
	seen := map[string]bool{}
	var cols []string
	for _, o := range objs {
		for k := range o {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	// keep the date column first when present
	for i, c := range cols {
		if strings.EqualFold(c, model.DateColumn) {
			cols = append([]string{c}, append(cols[:i:i], cols[i+1:]...)...)
			break
		}
	}
	t := &Table{Columns: cols, Rows: make([][]string, len(objs))}
	for i, o := range objs {
		row := make([]string, len(cols))
		for j, c := range cols {
			switch v := o[c].(type) {
			case nil:
			case string:
				row[j] = v
			case float64:
				row[j] = strconv.FormatFloat(v, 'f', -1, 64)
			default:
				row[j] = fmt.Sprint(v)
			}
		}
		t.Rows[i] = row
	}
	return t, nil
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "2006/01/02", "20060102"}

// ParseDate accepts the date formats commonly found in price files.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Panel converts a wide table (date column plus one numeric column per
// instrument) into a panel.
func (t *Table) Panel() (*model.Panel, error) {
	di := t.Index(model.DateColumn)
	if di < 0 {
		return nil, fmt.Errorf("table has no %q column", model.DateColumn)
	}
	var cols []int
	var names []string
	for j, c := range t.Columns {
		if j != di {
			cols = append(cols, j)
			names = append(names, c)
		}
	}
	dates := make([]time.Time, len(t.Rows))
	rows := make([][]float64, len(t.Rows))
	for i, r := range t.Rows {
		d, err := ParseDate(r[di])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		dates[i] = d
		rows[i] = make([]float64, len(cols))
		for k, j := range cols {
			v, err := parseFloat(r[j])
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i+1, t.Columns[j], err)
			}
			rows[i][k] = v
		}
	}
	p, err := model.NewPanel(dates, names, rows)
	if err != nil {
		return nil, err
	}
	return p.Sorted(), nil
}

// Bars converts a long table (date, ticker and bar fields) into bars.
// Missing bar columns read as 0; adj_close falls back to close.
func (t *Table) Bars() ([]model.Bar, error) {
	di, ti := t.Index(model.DateColumn), t.Index("ticker")
	if di < 0 || ti < 0 {
		return nil, errors.New("long table needs date and ticker columns")
	}
	fieldIdx := map[string]int{}
	for _, f := range model.BarFields {
		fieldIdx[f] = t.Index(f)
	}
	if fieldIdx[model.FieldClose] < 0 {
		return nil, errors.New("long table needs a close column")
	}
	bars := make([]model.Bar, 0, len(t.Rows))
	for i, r := range t.Rows {
		d, err := ParseDate(r[di])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		vals := map[string]float64{}
		for f, j := range fieldIdx {
			if j < 0 {
				continue
			}
			v, err := parseFloat(r[j])
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i+1, f, err)
			}
			vals[f] = v
		}
		b := model.Bar{
			Date:     d,
			Ticker:   r[ti],
			Open:     vals[model.FieldOpen],
			High:     vals[model.FieldHigh],
			Low:      vals[model.FieldLow],
			Close:    vals[model.FieldClose],
			AdjClose: vals[model.FieldAdjClose],
			Volume:   vals[model.FieldVolume],
		}
		if fieldIdx[model.FieldAdjClose] < 0 || b.AdjClose == 0 {
			b.AdjClose = b.Close
		}
		bars = append(bars, b)
	}
	model.SortBars(bars)
	return bars, nil
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
