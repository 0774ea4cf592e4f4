package strategy

import (
	"errors"
	"fmt"
	"sort"

	"quant-backtest/internal/model"
	"quant-backtest/internal/risk"
)

// ErrUnknownStrategy is returned by FromConfig for unregistered names.
var ErrUnknownStrategy = errors.New("unsupported strategy")

// Deps carries what some strategies need beyond their params.
type Deps struct {
	Prices    *model.Panel // full panel, oracle only
	Frequency Frequency    // rebalance schedule, oracle only
	Optimizer *risk.Optimizer
	Alpha     *AlphaTable
}

// ParamInfo describes one strategy parameter.
type ParamInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Default     interface{} `json:"default"`
}

// Info describes a registered strategy.
type Info struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []ParamInfo `json:"parameters"`
}

// Catalog lists the strategies FromConfig can build.
func Catalog() []Info {
	return []Info{
		{
			Name:        "equal",
			Description: "Equal weight across every instrument in the panel.",
			Parameters:  []ParamInfo{},
		},
		{
			Name:        "fixed",
			Description: "Constant target weights, renormalized by gross exposure.",
			Parameters: []ParamInfo{
				{Name: "<ticker>", Type: "float", Description: "Target weight for the ticker", Default: 0.0},
			},
		},
		{
			Name:        "momentum",
			Description: "Holds the top-k instruments by trailing return, equally weighted.",
			Parameters: []ParamInfo{
				{Name: "lookback", Type: "int", Description: "Rows of history for the trailing return", Default: 20},
				{Name: "top_k", Type: "int", Description: "Instruments held (0 = all)", Default: 1},
			},
		},
		{
			Name:        "mvo",
			Description: "Max-Sharpe mean-variance portfolio on a trailing window, trailing mean return as expected return.",
			Parameters: []ParamInfo{
				{Name: "lookback", Type: "int", Description: "Rows of history in the estimation window", Default: 60},
				{Name: "gamma", Type: "float", Description: "L2 regularization on weights", Default: 0.5},
				{Name: "risk_free_rate", Type: "float", Description: "Annualized risk-free rate", Default: 0.0},
			},
		},
		{
			Name:        "alpha",
			Description: "Per-date alpha scores, held in proportion to score or optimized with MVO.",
			Parameters: []ParamInfo{
				{Name: "threshold", Type: "float", Description: "Minimum score to hold an instrument", Default: 0.5},
				{Name: "optimize", Type: "bool", Description: "Use scores as expected returns in MVO", Default: false},
				{Name: "lookback", Type: "int", Description: "Rows of history for the optimizer (0 = all)", Default: 0},
			},
		},
		{
			Name:        "oracle",
			Description: "Perfect foresight benchmark. Holds the best performer until the next rebalance.",
			Parameters:  []ParamInfo{},
		},
	}
}

// Names returns the registered strategy names sorted.
func Names() []string {
	cat := Catalog()
	out := make([]string, len(cat))
	for i, s := range cat {
		out[i] = s.Name
	}
	sort.Strings(out)
	return out
}

// FromConfig builds a strategy by name.
func FromConfig(name string, params map[string]interface{}, deps Deps) (Strategy, error) {
	switch name {
	case "equal", "":
		return EqualWeight{}, nil
	case "fixed":
		targets := make(map[string]float64, len(params))
		for k := range params {
			targets[k] = mustNum(params, k, 0)
		}
		if len(targets) == 0 {
			return nil, errors.New("fixed strategy needs at least one ticker weight")
		}
		return &FixedWeights{Targets: targets}, nil
	case "momentum":
		return &Momentum{Params: MomentumParams{
			Lookback: int(mustNum(params, "lookback", 20)),
			TopK:     int(mustNum(params, "top_k", 1)),
		}}, nil
	case "mvo":
		return &MVO{
			Lookback:  int(mustNum(params, "lookback", 60)),
			Optimizer: tunedOptimizer(deps.Optimizer, params),
		}, nil
	case "alpha":
		if deps.Alpha == nil {
			return nil, errors.New("alpha strategy needs an alpha table")
		}
		s := &AlphaSignal{
			Table:     deps.Alpha,
			Threshold: mustNum(params, "threshold", 0.5),
			Lookback:  int(mustNum(params, "lookback", 0)),
		}
		if mustBool(params, "optimize", false) {
			s.Optimizer = tunedOptimizer(deps.Optimizer, params)
		}
		return s, nil
	case "oracle":
		if deps.Prices == nil {
			return nil, errors.New("oracle strategy needs the full price panel")
		}
		return NewOracleStrategy(deps.Prices, deps.Frequency)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

func tunedOptimizer(base *risk.Optimizer, params map[string]interface{}) *risk.Optimizer {
	var o risk.Optimizer
	if base != nil {
		o = *base
	} else {
		o = *risk.NewOptimizer(nil)
	}
	o.Gamma = mustNum(params, "gamma", o.Gamma)
	o.RiskFreeRate = mustNum(params, "risk_free_rate", o.RiskFreeRate)
	return &o
}

func mustNum(m map[string]interface{}, key string, def float64) float64 {
	if v, ok := m[key]; ok && v != nil {
		switch x := v.(type) {
		case float64:
			return x
		case int:
			return float64(x)
		}
	}
	return def
}

func mustBool(m map[string]interface{}, key string, def bool) bool {
	if v, ok := m[key]; ok && v != nil {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}
