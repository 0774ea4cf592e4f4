package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"quant-backtest/internal/alpha"
	"quant-backtest/internal/data"
	"quant-backtest/internal/logging"
	"quant-backtest/internal/model"
	"quant-backtest/internal/strategy"
)

// Config is the on-disk run configuration (YAML).
type Config struct {
	Name string     `yaml:"name"`
	Data DataConfig `yaml:"data"`
	// Optional: load cost parameters from a separate YAML (e.g. examples/costs/*.yaml).
	// If both CostsFile and Backtest are provided, Backtest overrides CostsFile.
	CostsFile string         `yaml:"costs_file"`
	Backtest  BacktestConfig `yaml:"backtest"`
	Strategy  StrategyConfig `yaml:"strategy"`
	Model     ModelConfig    `yaml:"model"`
	Logging   LoggingConfig  `yaml:"logging"`
}

// Data sources.
const (
	SourceCSV    = "csv"
	SourceYahoo  = "yahoo"
	SourceRemote = "remote"
	SourceStore  = "store"
)

type DataConfig struct {
	Source     string   `yaml:"source"`      // csv, yahoo, remote or store
	PricesFile string   `yaml:"prices_file"` // csv: wide date x ticker file
	URL        string   `yaml:"url"`         // remote: raw .csv or .json URL
	Token      string   `yaml:"token"`       // remote: optional GitHub token
	DBPath     string   `yaml:"db_path"`     // store: SQLite path
	Tickers    []string `yaml:"tickers"`
	Benchmark  string   `yaml:"benchmark"`
	Start      string   `yaml:"start"` // YYYY-MM-DD
	End        string   `yaml:"end"`
}

// BacktestConfig holds simulator settings. Cost fields are pointers so an
// explicit 0 (e.g. zero commission) survives merging and defaulting.
type BacktestConfig struct {
	InitialCapital *float64 `yaml:"initial_capital"`
	CommissionBps  *float64 `yaml:"commission_bps"`
	SlippageBps    *float64 `yaml:"slippage_bps"`
	Frequency      string   `yaml:"frequency"`
}

type StrategyConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

type ModelConfig struct {
	Kind    string `yaml:"kind"`
	Horizon int    `yaml:"horizon"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const DefaultFrequency = "W-FRI"

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	// If costs_file is set, load it and merge in any explicit overrides from c.Backtest.
	if c.CostsFile != "" {
		costsPath := c.CostsFile
		if !filepath.IsAbs(costsPath) {
			// Prefer interpreting relative paths as relative to the config file directory,
			// but fall back to the provided path (relative to cwd) if that doesn't exist.
			cand := filepath.Join(filepath.Dir(path), costsPath)
			if _, err := os.Stat(cand); err == nil {
				costsPath = cand
			}
		}
		loaded, err := loadCostsFile(costsPath)
		if err != nil {
			return nil, err
		}
		c.Backtest = MergeBacktest(loaded, c.Backtest)
	}
	return &c, nil
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.Data.Source == "" {
		c.Data.Source = SourceCSV
	}
	if c.Backtest.Frequency == "" {
		c.Backtest.Frequency = DefaultFrequency
	}
	d := model.DefaultCostParams()
	if c.Backtest.InitialCapital == nil {
		c.Backtest.InitialCapital = &d.InitialCapital
	}
	if c.Backtest.CommissionBps == nil {
		c.Backtest.CommissionBps = &d.CommissionBps
	}
	if c.Backtest.SlippageBps == nil {
		c.Backtest.SlippageBps = &d.SlippageBps
	}
	if c.Strategy.Name == "" {
		c.Strategy.Name = "equal"
	}
	if c.Model.Kind == "" {
		c.Model.Kind = "boosting"
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	switch c.Data.Source {
	case SourceCSV:
		if c.Data.PricesFile == "" {
			return errors.New("data.prices_file is required for csv source")
		}
	case SourceYahoo:
		if len(c.Data.Tickers) == 0 {
			return errors.New("data.tickers is required for yahoo source")
		}
	case SourceRemote:
		if c.Data.URL == "" {
			return errors.New("data.url is required for remote source")
		}
	case SourceStore:
		if c.Data.DBPath == "" {
			return errors.New("data.db_path is required for store source")
		}
	default:
		return fmt.Errorf("data.source %q is not one of csv, yahoo, remote, store", c.Data.Source)
	}
	start, end, err := c.Data.Window()
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return errors.New("data.start must be before data.end")
	}

	if err := c.Backtest.ToCostParams().Validate(); err != nil {
		return fmt.Errorf("backtest config invalid: %w", err)
	}
	if _, err := strategy.ParseFrequency(c.Backtest.Frequency); err != nil {
		return fmt.Errorf("backtest config invalid: %w", err)
	}
	if !contains(strategy.Names(), c.Strategy.Name) {
		return fmt.Errorf("strategy %q: %w", c.Strategy.Name, strategy.ErrUnknownStrategy)
	}
	if _, err := alpha.Build(c.Model.Kind); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// Window parses the optional start and end dates.
func (d DataConfig) Window() (start, end time.Time, err error) {
	if d.Start != "" {
		if start, err = data.ParseDate(d.Start); err != nil {
			return start, end, fmt.Errorf("data.start: %w", err)
		}
	}
	if d.End != "" {
		if end, err = data.ParseDate(d.End); err != nil {
			return start, end, fmt.Errorf("data.end: %w", err)
		}
	}
	return start, end, nil
}

// ToCostParams resolves the cost fields, using defaults for unset ones.
func (b BacktestConfig) ToCostParams() model.CostParams {
	p := model.DefaultCostParams()
	if b.InitialCapital != nil {
		p.InitialCapital = *b.InitialCapital
	}
	if b.CommissionBps != nil {
		p.CommissionBps = *b.CommissionBps
	}
	if b.SlippageBps != nil {
		p.SlippageBps = *b.SlippageBps
	}
	return p
}

type costsFileWrapper struct {
	Backtest BacktestConfig `yaml:"backtest"`
}

func loadCostsFile(path string) (BacktestConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return BacktestConfig{}, err
	}
	var w costsFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return BacktestConfig{}, err
	}
	return w.Backtest, nil
}

// MergeBacktest overlays the set fields of override onto base.
// This is used when loading a costs file and then applying overrides from the request.
func MergeBacktest(base, override BacktestConfig) BacktestConfig {
	out := base
	if override.InitialCapital != nil {
		out.InitialCapital = override.InitialCapital
	}
	if override.CommissionBps != nil {
		out.CommissionBps = override.CommissionBps
	}
	if override.SlippageBps != nil {
		out.SlippageBps = override.SlippageBps
	}
	if override.Frequency != "" {
		out.Frequency = override.Frequency
	}
	return out
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
