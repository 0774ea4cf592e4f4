package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"quant-backtest/internal/analysis"
	"quant-backtest/internal/backtest"
	"quant-backtest/internal/config"
	"quant-backtest/internal/data"
	"quant-backtest/internal/risk"
	"quant-backtest/internal/strategy"
)

var backtestCommand = &cli.Command{
	Name:      "backtest",
	Usage:     "run the rebalancing simulator from a YAML run config",
	ArgsUsage: " ",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    "path to YAML run config",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "out",
			Value: "results/equity.csv",
			Usage: "equity and holdings CSV",
		},
		&cli.StringFlag{
			Name:  "trades",
			Value: "results/trades.csv",
			Usage: "trades CSV (empty to skip)",
		},
		&cli.StringFlag{
			Name:  "alpha",
			Usage: "frame CSV (date, ticker, scores) feeding the alpha strategy",
		},
		&cli.StringFlag{
			Name:  "alpha-column",
			Value: "prob",
			Usage: "score column in --alpha",
		},
		&cli.StringFlag{
			Name:  "signals",
			Usage: "wide weights CSV; runs the frictionless vectorized backtest instead",
		},
		&cli.Float64Flag{
			Name:  "risk-free",
			Usage: "annual risk-free rate for Sharpe and Sortino",
		},
	},
	Action: runBacktest,
}

func runBacktest(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	l := configLogger(c, cfg)

	prices, err := loadPrices(c.Context, cfg.Data, l)
	if err != nil {
		return err
	}
	costs := cfg.Backtest.ToCostParams()
	analyzer := analysis.NewAnalyzer(c.Float64("risk-free"), l)

	if path := c.String("signals"); path != "" {
		signals, err := data.LoadPanelCSV(path)
		if err != nil {
			return err
		}
		res, err := backtest.NewVectorized(costs.InitialCapital, l).Run(prices, signals)
		if err != nil {
			return err
		}
		m := analyzer.Analyze(res.Returns)
		fmt.Printf("Vectorized backtest over %d dates\n", len(res.Dates))
		fmt.Printf("Final equity=%.2f Sharpe=%.3f MaxDD=%.2f%%\n", res.FinalEquity(), m.Sharpe, m.MaxDrawdown*100)
		return nil
	}

	freq, err := strategy.ParseFrequency(cfg.Backtest.Frequency)
	if err != nil {
		return err
	}
	deps := strategy.Deps{
		Prices:    prices,
		Frequency: freq,
		Optimizer: risk.NewOptimizer(l),
	}
	if path := c.String("alpha"); path != "" {
		frame, err := data.LoadFrameCSV(path)
		if err != nil {
			return err
		}
		if deps.Alpha, err = strategy.AlphaTableFromFrame(frame, c.String("alpha-column")); err != nil {
			return err
		}
	}
	strat, err := strategy.FromConfig(cfg.Strategy.Name, cfg.Strategy.Params, deps)
	if err != nil {
		return err
	}

	eng := backtest.New(costs, l)
	res, err := eng.Run(prices, strat, cfg.Backtest.Frequency)
	if err != nil {
		return err
	}

	out := c.String("out")
	if err := ensureDir(out); err != nil {
		return err
	}
	if err := backtest.WriteEquityCSV(out, res); err != nil {
		return err
	}
	fmt.Printf("Wrote %d rows to %s\n", len(res.Ledger), out)
	if trades := c.String("trades"); trades != "" {
		if err := ensureDir(trades); err != nil {
			return err
		}
		if err := backtest.WriteTradesCSV(trades, res.Trades); err != nil {
			return err
		}
		fmt.Printf("Wrote %d trades to %s\n", len(res.Trades), trades)
	}

	m := analyzer.Analyze(res.Returns)
	p := eng.Params()
	fmt.Printf("Capital=%.2f Commission=%gbps Slippage=%gbps\n", p.InitialCapital, p.CommissionBps, p.SlippageBps)
	fmt.Printf("Strategy=%s Rebalances=%d Commission=%.2f\n", strat.Name(), len(res.RebalanceDates), res.TotalCommission())
	fmt.Printf("Final equity=%.2f Total return=%.2f%% CAGR=%.2f%% Sharpe=%.3f Sortino=%.3f MaxDD=%.2f%%\n",
		res.FinalEquity(), m.TotalReturn*100, m.CAGR*100, m.Sharpe, m.Sortino, m.MaxDrawdown*100)
	return nil
}
