package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/urfave/cli/v2"

	"quant-backtest/internal/alpha"
	"quant-backtest/internal/analysis"
	"quant-backtest/internal/backtest"
	"quant-backtest/internal/config"
	"quant-backtest/internal/data"
	"quant-backtest/internal/features"
	"quant-backtest/internal/model"
	"quant-backtest/internal/risk"
	"quant-backtest/internal/strategy"
)

const (
	defaultBenchmark = "XU100.IS"
	alphaColumn      = "alpha"
)

var pipelineCommand = &cli.Command{
	Name:  "pipeline",
	Usage: "fetch, label, train, optimize, stress and backtest in one run",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML run config (data, costs, strategy params, model)",
		},
		&cli.StringSliceFlag{
			Name:  "tickers",
			Usage: "tickers to fetch from Yahoo when no config is given",
			Value: cli.NewStringSlice("AKBNK.IS", "GARAN.IS", "THYAO.IS"),
		},
		&cli.StringFlag{
			Name:  "bars",
			Usage: "read bars from this file instead of the configured source",
		},
		&cli.BoolFlag{
			Name:  "kap",
			Usage: "join KAP headline sentiment",
		},
		&cli.StringFlag{
			Name:  "out",
			Value: "results",
			Usage: "output directory",
		},
	},
	Action: runPipeline,
}

func pipelineConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	cfg := &config.Config{
		Name: "pipeline",
		Data: config.DataConfig{
			Source:    config.SourceYahoo,
			Tickers:   c.StringSlice("tickers"),
			Benchmark: defaultBenchmark,
		},
		Strategy: config.StrategyConfig{Name: "alpha"},
	}
	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

func runPipeline(c *cli.Context) error {
	cfg, err := pipelineConfig(c)
	if err != nil {
		return err
	}
	l := configLogger(c, cfg)
	if cfg.Data.Benchmark == "" {
		cfg.Data.Benchmark = defaultBenchmark
	}
	bench := cfg.Data.Benchmark

	var bars []model.Bar
	if path := c.String("bars"); path != "" {
		bars, err = loadBarsFile(path)
	} else {
		bars, err = loadBars(c.Context, cfg.Data, l)
	}
	if err != nil {
		return err
	}
	l.Info("loaded bars", "rows", len(bars))

	prices, err := tradablePrices(bars, bench)
	if err != nil {
		return err
	}

	frame, err := buildFeatures(c.Context, bars, bench, cfg.Model.Horizon, c.Bool("kap"), l)
	if err != nil {
		return err
	}
	frame = frame.DropNulls()
	l.Info("feature frame ready", "rows", frame.Len(), "columns", len(frame.Columns))

	m, err := alpha.Build(cfg.Model.Kind)
	if err != nil {
		return err
	}
	ds, err := alpha.PrepareData(frame, features.ColTarget)
	if err != nil {
		return err
	}
	if err := alpha.NewTrainer(l).Train(m, ds); err != nil {
		return err
	}
	scores, err := alpha.Predict(m, frame, ds.Features)
	if err != nil {
		return err
	}
	if err := frame.AddColumn(alphaColumn, scores); err != nil {
		return err
	}
	table, err := strategy.AlphaTableFromFrame(frame, alphaColumn)
	if err != nil {
		return err
	}

	// Optimize on the latest scores and hold those weights throughout.
	opt := risk.NewOptimizer(l)
	latest := table.At(lastDate(frame))
	weights, err := opt.MaxSharpe(prices, latest)
	if err != nil {
		l.Warn("optimization failed, using equal weights", "err", err)
		weights = strategy.EqualWeight{}.Weights(prices)
	}
	fmt.Printf("Optimal weights: %s\n", risk.FormatWeights(weights))

	signals, err := constantSignals(prices, weights)
	if err != nil {
		return err
	}
	costs := cfg.Backtest.ToCostParams()
	vec, err := backtest.NewVectorized(costs.InitialCapital, l).Run(prices, signals)
	if err != nil {
		return err
	}
	printTail(vec, 5)

	for _, r := range risk.NewScenarioAnalyzer(l).StressAll(weights) {
		fmt.Printf("Scenario %-10s shock=%+.2f return=%+.2f%%\n", r.Scenario, r.Shock, r.ExpectedReturn*100)
	}

	// Event-driven run with costs, trading the per-date scores.
	name := cfg.Strategy.Name
	if name == "" || name == "equal" {
		name = "alpha"
	}
	freq, err := strategy.ParseFrequency(cfg.Backtest.Frequency)
	if err != nil {
		return err
	}
	strat, err := strategy.FromConfig(name, cfg.Strategy.Params, strategy.Deps{
		Prices:    prices,
		Frequency: freq,
		Optimizer: opt,
		Alpha:     table,
	})
	if err != nil {
		return err
	}
	res, err := backtest.New(costs, l).Run(prices, strat, cfg.Backtest.Frequency)
	if err != nil {
		return err
	}
	met := analysis.NewAnalyzer(0, l).Analyze(res.Returns)
	fmt.Printf("Strategy=%s Final equity=%.2f Sharpe=%.3f MaxDD=%.2f%% Commission=%.2f\n",
		strat.Name(), res.FinalEquity(), met.Sharpe, met.MaxDrawdown*100, res.TotalCommission())

	dir := c.String("out")
	outputs := []struct {
		file  string
		write func(string) error
	}{
		{"equity.csv", func(p string) error { return backtest.WriteEquityCSV(p, res) }},
		{"trades.csv", func(p string) error { return backtest.WriteTradesCSV(p, res.Trades) }},
		{"features.csv", func(p string) error { return data.WriteFrameCSV(p, frame) }},
	}
	for _, o := range outputs {
		p := filepath.Join(dir, o.file)
		if err := ensureDir(p); err != nil {
			return err
		}
		if err := o.write(p); err != nil {
			return err
		}
	}
	fmt.Printf("Wrote results to %s\n", dir)
	return nil
}

// tradablePrices pivots closes on the dates every ticker traded, including
// the benchmark, and drops the benchmark column.
func tradablePrices(bars []model.Bar, bench string) (*model.Panel, error) {
	all, err := model.PivotBars(bars, model.FieldClose)
	if err != nil {
		return nil, err
	}
	var cols []string
	for _, col := range all.Columns {
		if col != bench {
			cols = append(cols, col)
		}
	}
	return all.Select(cols...)
}

func lastDate(f *model.Frame) time.Time {
	var last time.Time
	for _, d := range f.Dates {
		if d.After(last) {
			last = d
		}
	}
	return last
}

// constantSignals repeats one weight vector on every price date.
func constantSignals(prices *model.Panel, weights map[string]float64) (*model.Panel, error) {
	cols := make([]string, 0, len(weights))
	for k := range weights {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	rows := make([][]float64, prices.Len())
	for i := range rows {
		rows[i] = make([]float64, len(cols))
		for j, c := range cols {
			rows[i][j] = weights[c]
		}
	}
	return model.NewPanel(prices.Dates, cols, rows)
}

func printTail(res *backtest.VectorResult, n int) {
	start := len(res.Dates) - n
	if start < 0 {
		start = 0
	}
	fmt.Printf("%-12s %-14s %-10s\n", "date", "equity", "return%")
	for i := start; i < len(res.Dates); i++ {
		fmt.Printf("%-12s %-14.2f %-10.3f\n", res.Dates[i].Format("2006-01-02"), res.Equity[i], res.Returns[i]*100)
	}
}
