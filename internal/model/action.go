package model

// Side is a human-friendly trade direction for a fill.
// Keep these values stable; they are intended for CSV output.
type Side string

const (
	SideBuy  Side = "BUY"
	SideHold Side = "HOLD"
	SideSell Side = "SELL"
)

func SideFromAmount(amount float64) Side {
	switch {
	case amount > 0:
		return SideBuy
	case amount < 0:
		return SideSell
	default:
		return SideHold
	}
}

// Sign returns +1 for buys, -1 for sells and 0 otherwise.
func (s Side) Sign() float64 {
	switch s {
	case SideBuy:
		return 1
	case SideSell:
		return -1
	default:
		return 0
	}
}
