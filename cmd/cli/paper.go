package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"quant-backtest/internal/alpha"
	"quant-backtest/internal/data"
	"quant-backtest/internal/features"
	"quant-backtest/internal/model"
	"quant-backtest/internal/trading"
)

var paperCommand = &cli.Command{
	Name:  "paper",
	Usage: "paper trade a price-only classifier against live Yahoo quotes",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:     "tickers",
			Usage:    "symbols to trade",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "bars",
			Usage: "training bars file (default: fetch the last year)",
		},
		&cli.StringFlag{
			Name:  "benchmark",
			Value: defaultBenchmark,
			Usage: "benchmark for training labels",
		},
		&cli.StringFlag{
			Name:  "model",
			Value: "logistic",
			Usage: "boosting, logistic or centroid",
		},
		&cli.Float64Flag{
			Name:  "cash",
			Value: 100000,
			Usage: "starting cash",
		},
		&cli.Int64Flag{
			Name:  "quantity",
			Value: 1,
			Usage: "units bought per signal",
		},
		&cli.DurationFlag{
			Name:  "interval",
			Value: time.Minute,
			Usage: "time between iterations",
		},
		&cli.DurationFlag{
			Name:  "duration",
			Usage: "how long to run (0 runs a single iteration)",
		},
	},
	Action: runPaper,
}

func runPaper(c *cli.Context) error {
	tickers := c.StringSlice("tickers")
	bench := c.String("benchmark")
	yahoo := data.NewYahooClient("", 2, logger)

	var bars []model.Bar
	var err error
	if path := c.String("bars"); path != "" {
		bars, err = loadBarsFile(path)
	} else {
		end := time.Now().UTC()
		bars, err = yahoo.FetchEOD(c.Context, append(append([]string(nil), tickers...), bench), end.AddDate(-1, 0, 0), end)
	}
	if err != nil {
		return err
	}

	m, err := trainPriceModel(bars, bench, c.String("model"))
	if err != nil {
		return err
	}

	broker := trading.NewPaperBroker(decimal.NewFromFloat(c.Float64("cash")))
	sys := trading.NewLiveSystem(tickers, m, broker, yahoo, logger)
	sys.Quantity = decimal.NewFromInt(c.Int64("quantity"))

	if d := c.Duration("duration"); d > 0 {
		ctx, cancel := context.WithTimeout(c.Context, d)
		defer cancel()
		if err := sys.Run(ctx, c.Duration("interval")); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	} else if _, err := sys.Step(c.Context); err != nil {
		return err
	}

	fmt.Printf("%-8s %-10s %-8s %-10s\n", "side", "symbol", "qty", "price")
	for _, o := range broker.Orders() {
		fmt.Printf("%-8s %-10s %-8s %-10s\n", o.Side, o.Symbol, o.Quantity.String(), o.Price.StringFixed(2))
	}
	fmt.Printf("Cash=%s Positions=%v\n", broker.Cash().StringFixed(2), broker.Positions())
	return nil
}

// trainPriceModel fits a model whose only feature is the close, matching the
// live loop's PriceOnly features.
func trainPriceModel(bars []model.Bar, bench, kind string) (alpha.Model, error) {
	frame, err := features.LabelForward(model.BarsToFrame(bars), bench, features.DefaultHorizon)
	if err != nil {
		return nil, err
	}
	var drop []string
	for _, col := range frame.Columns {
		if col != model.FieldClose && col != features.ColTarget {
			drop = append(drop, col)
		}
	}
	frame.Drop(drop...)

	m, err := alpha.Build(kind)
	if err != nil {
		return nil, err
	}
	ds, err := alpha.PrepareData(frame, features.ColTarget)
	if err != nil {
		return nil, err
	}
	if err := alpha.NewTrainer(logger).Train(m, ds); err != nil {
		return nil, err
	}
	return m, nil
}
