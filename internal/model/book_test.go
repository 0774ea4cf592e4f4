package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostParamsValidate(t *testing.T) {
	t.Parallel()
	require.NoError(t, DefaultCostParams().Validate())
	assert.Error(t, CostParams{InitialCapital: 0}.Validate())
	assert.Error(t, CostParams{InitialCapital: 1, CommissionBps: -1}.Validate())
	assert.Error(t, CostParams{InitialCapital: 1, SlippageBps: -0.5}.Validate())
}

func TestExecutionPriceMovesAgainstTrader(t *testing.T) {
	t.Parallel()
	b, err := NewBook(CostParams{InitialCapital: 1000, SlippageBps: 100}, []string{"AAA"})
	require.NoError(t, err)
	assert.InDelta(t, 101.0, b.ExecutionPrice(100, 50), 1e-12, "buys pay more")
	assert.InDelta(t, 99.0, b.ExecutionPrice(100, -50), 1e-12, "sells receive less")
	assert.InDelta(t, 100.0, b.ExecutionPrice(100, 0), 1e-12)
}

func TestApplyTrade(t *testing.T) {
	t.Parallel()
	b, err := NewBook(CostParams{InitialCapital: 10_000, CommissionBps: 10, SlippageBps: 5}, []string{"AAA"})
	require.NoError(t, err)

	fill, err := b.ApplyTrade("AAA", 100, 5000)
	require.NoError(t, err)
	exec := 100 * (1 + 5.0/10000)
	assert.Equal(t, SideBuy, fill.Side)
	assert.InDelta(t, exec, fill.ExecPrice, 1e-12)
	assert.InDelta(t, 5000/exec, fill.Units, 1e-12)
	assert.InDelta(t, 5.0, fill.Commission, 1e-9)
	assert.InDelta(t, 10_000-5000-5.0, b.Cash, 1e-9)
	assert.InDelta(t, fill.Units, b.Units["AAA"], 1e-12)

	sell, err := b.ApplyTrade("AAA", 100, -1000)
	require.NoError(t, err)
	assert.Equal(t, SideSell, sell.Side)
	assert.Less(t, sell.Units, 0.0)
	assert.InDelta(t, 1.0, sell.Commission, 1e-9)

	_, err = b.ApplyTrade("AAA", 0, 10)
	assert.Error(t, err)
}

func TestBookValue(t *testing.T) {
	t.Parallel()
	b, err := NewBook(CostParams{InitialCapital: 1000}, []string{"A", "B"})
	require.NoError(t, err)
	b.Cash = 100
	b.Units["A"] = 2
	b.Units["B"] = 3
	prices := map[string]float64{"A": 10, "B": 20}
	assert.InDelta(t, 100+20+60, b.Value([]string{"A", "B"}, func(s string) float64 { return prices[s] }), 1e-12)

	snap := b.Snapshot()
	b.Units["A"] = 99
	assert.Equal(t, 2.0, snap["A"])
}
