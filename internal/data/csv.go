package data

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"quant-backtest/internal/model"
)

// LoadPanelCSV reads a wide price file: a date column and one column per instrument.
func LoadPanelCSV(path string) (*model.Panel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ParseCSVTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p, err := t.Panel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// WritePanelCSV writes a panel in the format LoadPanelCSV reads.
func WritePanelCSV(path string, p *model.Panel) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(append([]string{model.DateColumn}, p.Columns...)); err != nil {
		return err
	}
	for i, d := range p.Dates {
		row := make([]string, 0, len(p.Columns)+1)
		row = append(row, d.Format("2006-01-02"))
		for _, v := range p.Rows[i] {
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// LoadBarsCSV reads a long OHLCV file with date and ticker columns.
func LoadBarsCSV(path string) ([]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ParseCSVTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	bars, err := t.Bars()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// WriteBarsCSV writes bars in the format LoadBarsCSV reads.
func WriteBarsCSV(path string, bars []model.Bar) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := append([]string{model.DateColumn, "ticker"}, model.BarFields...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, b := range bars {
		row := []string{b.Date.Format("2006-01-02"), b.Ticker}
		for _, field := range model.BarFields {
			row = append(row, strconv.FormatFloat(b.Field(field), 'f', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// WriteFrameCSV writes a (date, ticker) frame with every column; NaN cells are empty.
func WriteFrameCSV(path string, fr *model.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(append([]string{model.DateColumn, "ticker"}, fr.Columns...)); err != nil {
		return err
	}
	for r := 0; r < fr.Len(); r++ {
		row := []string{fr.Dates[r].Format("2006-01-02"), fr.Tickers[r]}
		for c := range fr.Columns {
			v := fr.Data[c][r]
			if math.IsNaN(v) {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// LoadFrameCSV reads a file written by WriteFrameCSV. Empty cells become NaN.
func LoadFrameCSV(path string) (*model.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ParseCSVTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	di, ti := t.Index(model.DateColumn), t.Index("ticker")
	if di < 0 || ti < 0 {
		return nil, fmt.Errorf("%s: frame needs date and ticker columns", path)
	}
	dates := make([]time.Time, len(t.Rows))
	tickers := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		d, err := ParseDate(r[di])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		dates[i], tickers[i] = d, r[ti]
	}
	fr, err := model.NewFrame(dates, tickers)
	if err != nil {
		return nil, err
	}
	for j, c := range t.Columns {
		if j == di || j == ti {
			continue
		}
		col := make([]float64, len(t.Rows))
		for i, r := range t.Rows {
			if r[j] == "" {
				col[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(r[j], 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %s: %w", path, i+1, c, err)
			}
			col[i] = v
		}
		if err := fr.AddColumn(c, col); err != nil {
			return nil, err
		}
	}
	return fr, nil
}
