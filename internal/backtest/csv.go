package backtest

import (
	"encoding/csv"
	"os"
	"sort"
	"strconv"
	"time"
)

// WriteEquityCSV writes one row per ledger entry: date, cash, equity, return
// and the units held of every instrument.
func WriteEquityCSV(path string, res *Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	instruments := make([]string, 0, len(res.FinalPositions))
	for k := range res.FinalPositions {
		instruments = append(instruments, k)
	}
	sort.Strings(instruments)

	header := []string{"date", "cash", "equity", "return"}
	for _, inst := range instruments {
		header = append(header, "units_"+inst)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, r := range res.Ledger {
		ret := 0.0
		if i < len(res.Returns) {
			ret = res.Returns[i]
		}
		row := []string{
			fmtTime(r.Date),
			fmtFloat(r.Cash),
			fmtFloat(r.Equity),
			fmtFloat(ret),
		}
		for _, inst := range instruments {
			row = append(row, fmtFloat(r.Positions[inst]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

// WriteTradesCSV writes one row per fill.
func WriteTradesCSV(path string, trades []TradeRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"date",
		"instrument",
		"side",
		"amount",
		"quote_price",
		"exec_price",
		"units",
		"notional",
		"commission",
		"cash_after",
		"units_after",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, t := range trades {
		row := []string{
			fmtTime(t.Date),
			t.Instrument,
			string(t.Side),
			fmtFloat(t.Amount),
			fmtFloat(t.QuotePrice),
			fmtFloat(t.ExecPrice),
			fmtFloat(t.Units),
			fmtFloat(t.Notional),
			fmtFloat(t.Commission),
			fmtFloat(t.CashAfter),
			fmtFloat(t.UnitsAfter),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
