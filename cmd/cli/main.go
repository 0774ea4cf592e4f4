package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"quant-backtest/internal/config"
	"quant-backtest/internal/data"
	"quant-backtest/internal/logging"
	"quant-backtest/internal/model"
)

var (
	logLevel  string
	logFormat string
	logger    *slog.Logger
)

func main() {
	app := cli.NewApp()
	app.Name = "quant"
	app.Usage = "fetch data, train alpha models, optimize and backtest equity portfolios"
	app.EnableBashCompletion = true
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Value:       "info",
			Usage:       "debug, info, warn or error",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Value:       "text",
			Usage:       "text or json",
			Destination: &logFormat,
		},
	}
	app.Before = func(*cli.Context) error {
		var err error
		logger, err = logging.New(logLevel, logFormat, os.Stderr)
		return err
	}
	app.Commands = []*cli.Command{
		backtestCommand,
		fetchCommand,
		kapCommand,
		featuresCommand,
		trainCommand,
		optimizeCommand,
		stressCommand,
		rankCommand,
		pipelineCommand,
		paperCommand,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// configLogger honours the run config's logging section unless the level
// was set on the command line.
func configLogger(c *cli.Context, cfg *config.Config) *slog.Logger {
	if c.IsSet("log-level") || (cfg.Logging.Level == "" && cfg.Logging.Format == "") {
		return logger
	}
	format := cfg.Logging.Format
	if format == "" {
		format = logFormat
	}
	l, err := logging.New(cfg.Logging.Level, format, os.Stderr)
	if err != nil {
		return logger
	}
	return l
}

// window returns the configured dates, defaulting to the year before today.
func window(d config.DataConfig) (time.Time, time.Time, error) {
	start, end, err := d.Window()
	if err != nil {
		return start, end, err
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.AddDate(-1, 0, 0)
	}
	return start, end, nil
}

func dataWindow(start, end string) (time.Time, time.Time, error) {
	return window(config.DataConfig{Start: start, End: end})
}

// loadPrices builds the wide price panel described by the data section.
func loadPrices(ctx context.Context, d config.DataConfig, l *slog.Logger) (*model.Panel, error) {
	switch d.Source {
	case config.SourceCSV, "":
		return data.LoadPanelCSV(d.PricesFile)
	case config.SourceRemote:
		table, err := data.NewRemoteClient(l).Fetch(ctx, d.URL, d.Token)
		if err != nil {
			return nil, err
		}
		return table.Panel()
	case config.SourceYahoo, config.SourceStore:
		bars, err := loadBars(ctx, d, l)
		if err != nil {
			return nil, err
		}
		var tradable []model.Bar
		for _, b := range bars {
			if b.Ticker != d.Benchmark {
				tradable = append(tradable, b)
			}
		}
		return model.PivotBars(tradable, model.FieldAdjClose)
	}
	return nil, fmt.Errorf("unknown data source %q", d.Source)
}

// loadBars returns long-format bars for the tickers and the benchmark.
func loadBars(ctx context.Context, d config.DataConfig, l *slog.Logger) ([]model.Bar, error) {
	start, end, err := window(d)
	if err != nil {
		return nil, err
	}
	tickers := append([]string(nil), d.Tickers...)
	if d.Benchmark != "" {
		tickers = append(tickers, d.Benchmark)
	}

	switch d.Source {
	case config.SourceYahoo:
		client := data.NewYahooClient("", 2, l)
		client.Cache = data.CacheFromEnv[[]model.Bar]()
		return client.FetchEOD(ctx, tickers, start, end)
	case config.SourceStore:
		store, err := data.OpenPriceStore(d.DBPath)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.LoadBars(ctx, tickers, start, end)
	}
	return nil, fmt.Errorf("data source %q does not provide bars", d.Source)
}

// parseWeights reads TICKER=VALUE pairs.
func parseWeights(pairs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("expected TICKER=VALUE, got %q", p)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[strings.TrimSpace(k)] = f
	}
	return out, nil
}

func ensureDir(path string) error {
	if path == "" {
		return errors.New("empty output path")
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
