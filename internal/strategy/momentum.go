package strategy

import (
	"sort"

	"quant-backtest/internal/model"
)

// MomentumParams configures a cross-sectional momentum rotation.
type MomentumParams struct {
	Lookback int // rows of history used for the trailing return
	TopK     int // number of instruments held
}

// Momentum holds the TopK instruments with the best trailing return,
// equally weighted. It returns no weights until Lookback rows are available.
type Momentum struct {
	Params MomentumParams
}

func (s *Momentum) Name() string { return "momentum" }

func (s *Momentum) Weights(history *model.Panel) map[string]float64 {
	lookback := s.Params.Lookback
	if lookback <= 0 {
		lookback = 20
	}
	n := history.Len()
	if n <= lookback {
		return nil
	}
	type scored struct {
		name string
		ret  float64
	}
	scores := make([]scored, 0, len(history.Columns))
	for j, c := range history.Columns {
		then := history.Rows[n-1-lookback][j]
		if then <= 0 {
			continue
		}
		scores = append(scores, scored{name: c, ret: history.Rows[n-1][j]/then - 1})
	}
	if len(scores) == 0 {
		return nil
	}
	sort.SliceStable(scores, func(a, b int) bool { return scores[a].ret > scores[b].ret })

	k := s.Params.TopK
	if k <= 0 || k > len(scores) {
		k = len(scores)
	}
	out := make(map[string]float64, len(history.Columns))
	for _, c := range history.Columns {
		out[c] = 0
	}
	for _, sc := range scores[:k] {
		out[sc.name] = 1 / float64(k)
	}
	return out
}
