package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-backtest/internal/model"
)

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := write(t, t.TempDir(), "run.yaml", `
data:
  prices_file: prices.csv
backtest:
  commission_bps: 0
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SourceCSV, c.Data.Source)
	assert.Equal(t, DefaultFrequency, c.Backtest.Frequency)
	assert.Equal(t, "equal", c.Strategy.Name)
	assert.Equal(t, "boosting", c.Model.Kind)

	p := c.Backtest.ToCostParams()
	assert.Equal(t, model.DefaultInitialCapital, p.InitialCapital)
	assert.Equal(t, 0.0, p.CommissionBps, "explicit zero survives defaults")
	assert.Equal(t, model.DefaultSlippageBps, p.SlippageBps)
}

func TestLoadMergesCostsFile(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "costs/retail.yaml", `
backtest:
  initial_capital: 50000
  commission_bps: 20
  slippage_bps: 8
  frequency: M
`)
	path := write(t, dir, "run.yaml", `
data:
  source: yahoo
  tickers: [AKBNK.IS, GARAN.IS]
  start: 2020-01-01
  end: 2020-06-01
costs_file: costs/retail.yaml
backtest:
  slippage_bps: 0
strategy:
  name: momentum
  params:
    lookback: 10
`)
	c, err := Load(path)
	require.NoError(t, err)
	p := c.Backtest.ToCostParams()
	assert.Equal(t, 50000.0, p.InitialCapital)
	assert.Equal(t, 20.0, p.CommissionBps)
	assert.Equal(t, 0.0, p.SlippageBps)
	assert.Equal(t, "M", c.Backtest.Frequency)
	assert.Equal(t, 10, c.Strategy.Params["lookback"])

	start, end, err := c.Data.Window()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC), end)
	assert.True(t, start.Before(end))
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"missing prices file": `data: {source: csv}`,
		"unknown source":      `data: {source: ftp}`,
		"bad frequency":       "data: {prices_file: p.csv}\nbacktest: {frequency: fortnightly}",
		"unknown strategy":    "data: {prices_file: p.csv}\nstrategy: {name: magic}",
		"negative capital":    "data: {prices_file: p.csv}\nbacktest: {initial_capital: -1}",
		"unknown model":       "data: {prices_file: p.csv}\nmodel: {kind: forest}",
		"inverted window":     "data: {source: yahoo, tickers: [A], start: 2021-01-01, end: 2020-01-01}",
		"bad log level":       "data: {prices_file: p.csv}\nlogging: {level: loud}",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := write(t, t.TempDir(), "run.yaml", body)
			_, err := Load(path)
			assert.Error(t, err)

			c, err := LoadUnchecked(path)
			require.NoError(t, err, "unchecked load never validates")
			assert.NotNil(t, c)
		})
	}

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())
}

func TestMergeBacktest(t *testing.T) {
	ten, zero := 10.0, 0.0
	base := BacktestConfig{CommissionBps: &ten, Frequency: "W-FRI"}
	out := MergeBacktest(base, BacktestConfig{CommissionBps: &zero})
	assert.Equal(t, 0.0, *out.CommissionBps)
	assert.Equal(t, "W-FRI", out.Frequency)
	assert.Nil(t, out.SlippageBps)
}

func TestLoadServer(t *testing.T) {
	s, err := LoadServer("")
	require.NoError(t, err)
	assert.Equal(t, "8080", s.Port)
	assert.Equal(t, time.Hour, s.RunTTL)
	assert.False(t, s.Production())

	t.Setenv("API_PORT", "9090")
	t.Setenv("API_ENV", "production")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	path := write(t, t.TempDir(), "server.yaml", "port: \"7070\"\nrun_ttl: 30m\nlog_format: json\n")
	s, err = LoadServer(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", s.Port, "env overrides file")
	assert.Equal(t, 30*time.Minute, s.RunTTL)
	assert.Equal(t, "json", s.LogFormat)
	assert.True(t, s.Production())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.CORSOrigins)

	_, err = LoadServer(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
