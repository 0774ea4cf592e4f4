package risk

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
)

// ErrUnknownScenario is returned for a scenario name not in Scenarios.
var ErrUnknownScenario = errors.New("unknown scenario")

// Scenarios maps a scenario name to a uniform market shock.
var Scenarios = map[string]float64{
	"crash":     -0.30,
	"rally":     0.20,
	"mild_bear": -0.10,
	"mild_bull": 0.10,
}

// ScenarioNames returns the known scenarios sorted by name.
func ScenarioNames() []string {
	out := make([]string, 0, len(Scenarios))
	for k := range Scenarios {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// StressResult is the implied portfolio return under one scenario.
type StressResult struct {
	Scenario       string  `json:"scenario"`
	Shock          float64 `json:"shock"`
	ExpectedReturn float64 `json:"expected_return"`
}

// ScenarioAnalyzer applies pre-defined market shocks to a weight vector.
type ScenarioAnalyzer struct {
	logger *slog.Logger
}

func NewScenarioAnalyzer(logger *slog.Logger) *ScenarioAnalyzer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ScenarioAnalyzer{logger: logger}
}

// StressTest estimates the portfolio return as sum(w) * shock.
func (a *ScenarioAnalyzer) StressTest(weights map[string]float64, scenario string) (StressResult, error) {
	shock, ok := Scenarios[scenario]
	if !ok {
		a.logger.Error("unknown scenario", "scenario", scenario)
		return StressResult{}, fmt.Errorf("%w: %q", ErrUnknownScenario, scenario)
	}
	expected := 0.0
	for _, w := range weights {
		expected += w * shock
	}
	a.logger.Info("scenario applied", "scenario", scenario,
		"portfolio_return_pct", fmt.Sprintf("%.2f", expected*100))
	return StressResult{Scenario: scenario, Shock: shock, ExpectedReturn: expected}, nil
}

// StressAll runs every known scenario in name order.
func (a *ScenarioAnalyzer) StressAll(weights map[string]float64) []StressResult {
	names := ScenarioNames()
	out := make([]StressResult, 0, len(names))
	for _, name := range names {
		r, _ := a.StressTest(weights, name)
		out = append(out, r)
	}
	return out
}
