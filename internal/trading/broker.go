package trading

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"quant-backtest/internal/model"
)

var (
	ErrInsufficientFunds    = errors.New("insufficient cash")
	ErrInsufficientPosition = errors.New("insufficient position")
	ErrInvalidOrder         = errors.New("invalid order")
)

// Order is an executed paper order. Quantity is signed: positive buys.
type Order struct {
	Symbol   string          `json:"symbol"`
	Side     model.Side      `json:"side"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Time     time.Time       `json:"time"`
}

// Notional is |quantity| x price.
func (o Order) Notional() decimal.Decimal {
	return o.Quantity.Abs().Mul(o.Price)
}

// PaperBroker fills market orders immediately at the given price.
type PaperBroker struct {
	mu        sync.Mutex
	cash      decimal.Decimal
	positions map[string]decimal.Decimal
	orders    []Order
	now       func() time.Time
}

func NewPaperBroker(cash decimal.Decimal) *PaperBroker {
	return &PaperBroker{
		cash:      cash,
		positions: make(map[string]decimal.Decimal),
		now:       time.Now,
	}
}

func (b *PaperBroker) Cash() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cash
}

// Positions returns a copy of the non-zero holdings.
func (b *PaperBroker) Positions() map[string]decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(b.positions))
	for s, q := range b.positions {
		if !q.IsZero() {
			out[s] = q
		}
	}
	return out
}

// Orders returns the fill history, oldest first.
func (b *PaperBroker) Orders() []Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Order(nil), b.orders...)
}

// PlaceOrder buys (quantity > 0) or sells (quantity < 0) at price.
// Buys need enough cash and sells need enough units; shorting is not allowed.
func (b *PaperBroker) PlaceOrder(symbol string, quantity, price decimal.Decimal) (Order, error) {
	if symbol == "" || quantity.IsZero() || !price.IsPositive() {
		return Order{}, fmt.Errorf("%w: %s qty=%s price=%s", ErrInvalidOrder, symbol, quantity, price)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	cost := quantity.Mul(price)
	if quantity.IsPositive() && cost.GreaterThan(b.cash) {
		return Order{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, cost.StringFixed(2), b.cash.StringFixed(2))
	}
	held := b.positions[symbol]
	if quantity.IsNegative() && quantity.Abs().GreaterThan(held) {
		return Order{}, fmt.Errorf("%w: %s holds %s", ErrInsufficientPosition, symbol, held)
	}

	b.cash = b.cash.Sub(cost)
	b.positions[symbol] = held.Add(quantity)
	side := model.SideBuy
	if quantity.IsNegative() {
		side = model.SideSell
	}
	o := Order{Symbol: symbol, Side: side, Quantity: quantity, Price: price, Time: b.now()}
	b.orders = append(b.orders, o)
	return o, nil
}

// Equity is cash plus positions marked at prices; symbols without a price
// are skipped.
func (b *PaperBroker) Equity(prices map[string]decimal.Decimal) decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := b.cash
	symbols := make([]string, 0, len(b.positions))
	for s := range b.positions {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	for _, s := range symbols {
		if p, ok := prices[s]; ok {
			total = total.Add(b.positions[s].Mul(p))
		}
	}
	return total
}
