package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"quant-backtest/internal/data"
	"quant-backtest/internal/model"
)

var fetchCommand = &cli.Command{
	Name:  "fetch",
	Usage: "download end-of-day bars from Yahoo Finance",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "tickers",
			Usage: "comma-separated tickers, e.g. AKBNK.IS,GARAN.IS",
		},
		&cli.BoolFlag{
			Name:  "bist100",
			Usage: "add the BIST 100 constituents to --tickers",
		},
		&cli.StringFlag{
			Name:  "benchmark",
			Value: "XU100.IS",
			Usage: "benchmark ticker fetched alongside (empty to skip)",
		},
		&cli.StringFlag{
			Name:  "start",
			Usage: "start date (YYYY-MM-DD, default one year ago)",
		},
		&cli.StringFlag{
			Name:  "end",
			Usage: "end date (YYYY-MM-DD, default today)",
		},
		&cli.StringFlag{
			Name:  "out",
			Value: "data/bars.csv",
			Usage: "output file; a .json extension writes JSON",
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "also upsert the bars into this SQLite price store",
		},
		&cli.Float64Flag{
			Name:  "rps",
			Value: 2,
			Usage: "maximum requests per second",
		},
	},
	Action: func(c *cli.Context) error {
		tickers := c.StringSlice("tickers")
		if c.Bool("bist100") {
			tickers = append(tickers, data.BIST100Constituents()...)
		}
		if len(tickers) == 0 {
			return fmt.Errorf("no tickers: use --tickers or --bist100")
		}
		if b := c.String("benchmark"); b != "" {
			tickers = append(tickers, b)
		}
		start, end, err := dataWindow(c.String("start"), c.String("end"))
		if err != nil {
			return err
		}

		client := data.NewYahooClient("", c.Float64("rps"), logger)
		bars, err := client.FetchEOD(c.Context, tickers, start, end)
		if err != nil {
			return err
		}

		out := c.String("out")
		if err := ensureDir(out); err != nil {
			return err
		}
		if strings.HasSuffix(strings.ToLower(out), ".json") {
			err = data.SaveBarsJSON(out, &data.BarsFile{
				Source:    "yahoo",
				UpdatedAt: time.Now().UTC().Format(time.RFC3339),
				Data:      bars,
			})
		} else {
			err = data.WriteBarsCSV(out, bars)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Fetched %d bars for %d tickers into %s\n", len(bars), len(data.GroupByTicker(bars)), out)

		if db := c.String("db"); db != "" {
			store, err := data.OpenPriceStore(db)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.SaveBars(c.Context, bars); err != nil {
				return err
			}
			fmt.Printf("Stored bars in %s\n", db)
		}
		return nil
	},
}

var kapCommand = &cli.Command{
	Name:  "kap",
	Usage: "scrape KAP disclosure headlines and score their sentiment",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:     "tickers",
			Usage:    "comma-separated tickers, e.g. AKBNK,GARAN",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "max",
			Value: 5,
			Usage: "headlines per ticker",
		},
		&cli.BoolFlag{
			Name:  "headlines",
			Usage: "print every headline",
		},
	},
	Action: func(c *cli.Context) error {
		client := data.NewKAPClient("", logger)
		headlines, err := client.FetchHeadlines(c.Context, c.StringSlice("tickers"), c.Int("max"))
		if err != nil {
			return err
		}
		if c.Bool("headlines") {
			for _, h := range headlines {
				fmt.Printf("%-10s %+3.0f  %s\n", h.Ticker, h.Sentiment, h.Text)
			}
			fmt.Println()
		}

		scores := data.SentimentByTicker(headlines)
		tickers := make([]string, 0, len(scores))
		for t := range scores {
			tickers = append(tickers, t)
		}
		sort.Strings(tickers)
		fmt.Printf("%-10s %-10s\n", "ticker", "sentiment")
		for _, t := range tickers {
			fmt.Printf("%-10s %-10.3f\n", t, scores[t])
		}
		return nil
	},
}

// loadBarsFile reads bars from CSV or JSON by extension.
func loadBarsFile(path string) ([]model.Bar, error) {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return data.LoadBarsJSON(path)
	}
	return data.LoadBarsCSV(path)
}
