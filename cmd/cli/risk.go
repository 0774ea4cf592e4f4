package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"quant-backtest/internal/analysis"
	"quant-backtest/internal/data"
	"quant-backtest/internal/risk"
	"quant-backtest/internal/strategy"
)

var optimizeCommand = &cli.Command{
	Name:  "optimize",
	Usage: "solve long-only max-Sharpe weights from a price panel",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "prices",
			Usage:    "wide price CSV (date column plus one column per ticker)",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:  "alpha",
			Usage: "expected annual returns as TICKER=VALUE (default trailing mean)",
		},
		&cli.Float64Flag{
			Name:  "gamma",
			Value: 0.5,
			Usage: "risk aversion",
		},
		&cli.Float64Flag{
			Name:  "risk-free",
			Usage: "annual risk-free rate",
		},
	},
	Action: func(c *cli.Context) error {
		prices, err := data.LoadPanelCSV(c.String("prices"))
		if err != nil {
			return err
		}
		prices = prices.Sorted()

		opt := risk.NewOptimizer(logger)
		opt.Gamma = c.Float64("gamma")
		opt.RiskFreeRate = c.Float64("risk-free")

		alpha := strategy.TrailingMean(prices, opt.PeriodsPerYear)
		if pairs := c.StringSlice("alpha"); len(pairs) > 0 {
			if alpha, err = parseWeights(pairs); err != nil {
				return err
			}
		}
		weights, err := opt.MaxSharpe(prices, alpha)
		if err != nil {
			return err
		}
		fmt.Printf("Optimal weights: %s\n", risk.FormatWeights(weights))
		return nil
	},
}

var stressCommand = &cli.Command{
	Name:  "stress",
	Usage: "apply market shock scenarios to a weight vector",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:     "weights",
			Usage:    "portfolio weights as TICKER=VALUE",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "scenario",
			Usage: "one scenario name (default all)",
		},
	},
	Action: func(c *cli.Context) error {
		weights, err := parseWeights(c.StringSlice("weights"))
		if err != nil {
			return err
		}
		sa := risk.NewScenarioAnalyzer(logger)

		var results []risk.StressResult
		if name := c.String("scenario"); name != "" {
			r, err := sa.StressTest(weights, name)
			if err != nil {
				return fmt.Errorf("%w (known: %v)", err, risk.ScenarioNames())
			}
			results = append(results, r)
		} else {
			results = sa.StressAll(weights)
		}

		fmt.Printf("%-10s %-8s %-10s\n", "scenario", "shock", "return%")
		for _, r := range results {
			fmt.Printf("%-10s %-8.2f %-10.2f\n", r.Scenario, r.Shock, r.ExpectedReturn*100)
		}
		return nil
	},
}

var rankCommand = &cli.Command{
	Name:  "rank",
	Usage: "rank tickers in a price panel by Sharpe ratio",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "prices",
			Usage:    "wide price CSV",
			Required: true,
		},
		&cli.Float64Flag{
			Name:  "risk-free",
			Usage: "annual risk-free rate",
		},
	},
	Action: func(c *cli.Context) error {
		prices, err := data.LoadPanelCSV(c.String("prices"))
		if err != nil {
			return err
		}

		ranked := analysis.RankInstruments(prices, c.Float64("risk-free"))
		fmt.Printf("%-4s %-12s %-6s %-8s %-10s %-8s %-8s %-10s\n", "rank", "ticker", "count", "sharpe", "p95-p05", "maxdd%", "cagr%", "oracle%")
		for _, r := range ranked {
			fmt.Printf(
				"%-4d %-12s %-6d %-8.3f %-10.4f %-8.2f %-8.2f %-10.2f\n",
				r.Rank,
				r.Instrument,
				r.Count,
				r.Metrics.Sharpe,
				r.SpreadP95P05,
				r.Metrics.MaxDrawdown*100,
				r.Metrics.CAGR*100,
				r.OracleReturn*100,
			)
		}
		return nil
	},
}
