package features

import (
	"errors"
	"io"
	"log/slog"
	"math"

	"github.com/thrasher-corp/gct-ta/indicators"

	"quant-backtest/internal/model"
)

// Columns added by Generate.
const (
	ColReturn     = "return"
	ColSMA        = "sma_5"
	ColRSI        = "rsi"
	ColMACD       = "macd"
	ColMACDSignal = "macd_signal"
	ColMACDHist   = "macd_hist"
	ColBBMiddle   = "bb_middle"
	ColBBUpper    = "bb_upper"
	ColBBLower    = "bb_lower"
)

// Columns lists the generated feature columns in output order.
var Columns = []string{
	ColReturn, ColSMA, ColRSI,
	ColMACD, ColMACDSignal, ColMACDHist,
	ColBBMiddle, ColBBUpper, ColBBLower,
}

// ErrNoClose is returned when the input frame has no close column.
var ErrNoClose = errors.New("input data must contain a close column")

// Params holds indicator periods.
type Params struct {
	SMAPeriod    int
	RSIPeriod    int
	MACDFast     int
	MACDSlow     int
	MACDSignal   int
	BBPeriod     int
	BBDeviations float64
}

func DefaultParams() Params {
	return Params{
		SMAPeriod:    5,
		RSIPeriod:    14,
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
		BBPeriod:     20,
		BBDeviations: 2,
	}
}

// Engineer computes technical features per ticker.
type Engineer struct {
	Params Params
	logger *slog.Logger
}

func NewEngineer(logger *slog.Logger) *Engineer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engineer{Params: DefaultParams(), logger: logger}
}

// Generate returns a copy of f sorted by (ticker, date) with the feature
// columns appended. Rows inside an indicator's warm-up window are NaN, as are
// all rows of a ticker with too little history for that indicator.
func (e *Engineer) Generate(f *model.Frame) (*model.Frame, error) {
	if f == nil || !f.Has(model.FieldClose) {
		e.logger.Error("input data must contain a 'close' column")
		return nil, ErrNoClose
	}

	out := f.SortByTickerDate()
	n := out.Len()
	cols := make(map[string][]float64, len(Columns))
	for _, name := range Columns {
		cols[name] = nanSlice(n)
	}

	closes := out.Column(model.FieldClose)
	groups := out.GroupByTicker()
	for _, ticker := range out.TickerNames() {
		rows := groups[ticker]
		in := make([]float64, len(rows))
		for k, r := range rows {
			in[k] = closes[r]
		}
		for name, series := range e.series(in) {
			dst := cols[name]
			for k, r := range rows {
				dst[r] = series[k]
			}
		}
	}

	for _, name := range Columns {
		if err := out.AddColumn(name, cols[name]); err != nil {
			return nil, err
		}
	}
	e.logger.Info("generated features", "rows", n, "tickers", len(groups), "columns", len(Columns))
	return out, nil
}

// series computes every feature for one ticker's close prices.
func (e *Engineer) series(in []float64) map[string][]float64 {
	p := e.Params
	n := len(in)
	out := make(map[string][]float64, len(Columns))

	ret := nanSlice(n)
	for i := 1; i < n; i++ {
		if in[i-1] != 0 {
			ret[i] = in[i]/in[i-1] - 1
		}
	}
	out[ColReturn] = ret

	out[ColSMA] = nanSlice(n)
	if p.SMAPeriod > 0 && n >= p.SMAPeriod {
		out[ColSMA] = align(indicators.SMA(in, p.SMAPeriod), n, p.SMAPeriod-1)
	}

	out[ColRSI] = nanSlice(n)
	if p.RSIPeriod > 0 && n > p.RSIPeriod {
		out[ColRSI] = align(indicators.RSI(in, p.RSIPeriod), n, p.RSIPeriod)
	}

	out[ColMACD], out[ColMACDSignal], out[ColMACDHist] = nanSlice(n), nanSlice(n), nanSlice(n)
	if p.MACDFast > 0 && p.MACDSlow > p.MACDFast && p.MACDSignal > 0 && n > p.MACDSlow+p.MACDSignal-2 {
		macd, signal, hist := indicators.MACD(in, p.MACDFast, p.MACDSlow, p.MACDSignal)
		warm := p.MACDSlow + p.MACDSignal - 2
		out[ColMACD] = align(macd, n, p.MACDSlow-1)
		out[ColMACDSignal] = align(signal, n, warm)
		out[ColMACDHist] = align(hist, n, warm)
	}

	out[ColBBMiddle], out[ColBBUpper], out[ColBBLower] = nanSlice(n), nanSlice(n), nanSlice(n)
	if p.BBPeriod > 1 && n >= p.BBPeriod {
		upper, middle, lower := indicators.BBANDS(in, p.BBPeriod, p.BBDeviations, p.BBDeviations, indicators.Sma)
		out[ColBBMiddle] = align(middle, n, p.BBPeriod-1)
		out[ColBBUpper] = align(upper, n, p.BBPeriod-1)
		out[ColBBLower] = align(lower, n, p.BBPeriod-1)
	}
	return out
}

// align right-aligns an indicator output to n rows and masks the first warm rows.
func align(values []float64, n, warm int) []float64 {
	out := nanSlice(n)
	offset := n - len(values)
	for i, v := range values {
		if j := i + offset; j >= warm && j >= 0 && j < n {
			out[j] = v
		}
	}
	return out
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
