package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"time"

	"quant-backtest/internal/backtest"
	"quant-backtest/internal/config"
	"quant-backtest/internal/data"
	"quant-backtest/internal/model"
	"quant-backtest/internal/risk"
	"quant-backtest/internal/strategy"
)

// Demo:
// - Load a wide price CSV, or generate a random walk panel
// - Run a strategy with default costs (or a YAML config)
// - Print the first ledger rows to show how the pieces fit together
func main() {
	dataPath := flag.String("data", "", "Path to wide price CSV (default: synthetic prices)")
	cfgPath := flag.String("config", "", "Path to YAML config (optional)")
	n := flag.Int("n", 60, "Number of trading days to simulate")
	seed := flag.Int64("seed", 1, "Random seed for synthetic prices")
	outCSV := flag.String("out", "", "Optional path to write equity CSV (e.g. results/demo.csv)")
	flag.Parse()

	var prices *model.Panel
	var err error
	if *dataPath != "" {
		prices, err = data.LoadPanelCSV(*dataPath)
	} else {
		prices, err = syntheticPanel([]string{"AKBNK.IS", "GARAN.IS", "THYAO.IS"}, *n, *seed)
	}
	if err != nil {
		panic(err)
	}
	prices = prices.Sorted().Head(*n)

	// Defaults (can be overridden via --config).
	params := model.DefaultCostParams()
	frequency := config.DefaultFrequency
	var strat strategy.Strategy = strategy.EqualWeight{}

	if *cfgPath != "" {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			panic(err)
		}
		params = cfg.Backtest.ToCostParams()
		frequency = cfg.Backtest.Frequency
		freq, err := strategy.ParseFrequency(frequency)
		if err != nil {
			panic(err)
		}
		strat, err = strategy.FromConfig(cfg.Strategy.Name, cfg.Strategy.Params, strategy.Deps{
			Prices:    prices,
			Frequency: freq,
			Optimizer: risk.NewOptimizer(nil),
		})
		if err != nil {
			panic(err)
		}
	}

	result, err := backtest.New(params, nil).Run(prices, strat, frequency)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Loaded %d days for %d instruments\n", prices.Len(), len(prices.Columns))
	fmt.Printf("Strategy=%s Frequency=%s\n", strat.Name(), frequency)
	fmt.Printf("Initial capital=%.2f Rebalances=%d\n\n", params.InitialCapital, len(result.RebalanceDates))

	for i := 0; i < min(12, len(result.Ledger)); i++ {
		r := result.Ledger[i]
		fmt.Printf(
			"%s cash=%12.2f  equity=%12.2f  ret=%+7.3f%%  positions=%v\n",
			r.Date.Format("2006-01-02"),
			r.Cash,
			r.Equity,
			result.Returns[i]*100,
			roundUnits(r.Positions),
		)
	}

	if *outCSV != "" {
		if err := backtest.WriteEquityCSV(*outCSV, result); err != nil {
			panic(err)
		}
		fmt.Printf("\nWrote CSV: %s\n", *outCSV)
	}

	fmt.Printf("\nDone. Final equity=%.2f  Commission=%.2f  Trades=%d\n",
		result.FinalEquity(), result.TotalCommission(), len(result.Trades))
}

// syntheticPanel draws geometric random walks starting at 100 on business days.
func syntheticPanel(tickers []string, n int, seed int64) (*model.Panel, error) {
	rng := rand.New(rand.NewSource(seed))
	dates := make([]time.Time, 0, n)
	for d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); len(dates) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			dates = append(dates, d)
		}
	}
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, len(tickers))
		for j := range tickers {
			if i == 0 {
				rows[i][j] = 100
				continue
			}
			rows[i][j] = rows[i-1][j] * math.Exp(0.0003+0.015*rng.NormFloat64())
		}
	}
	return model.NewPanel(dates, tickers, rows)
}

func roundUnits(pos map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(pos))
	for k, v := range pos {
		out[k] = math.Round(v*100) / 100
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
