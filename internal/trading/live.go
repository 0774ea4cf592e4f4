package trading

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"quant-backtest/internal/alpha"
)

// ErrNoPrices aborts an iteration when no symbol could be priced.
var ErrNoPrices = errors.New("no prices retrieved")

// PriceSource returns the latest traded price for a symbol.
type PriceSource interface {
	LatestPrice(ctx context.Context, symbol string) (float64, error)
}

// FeatureFunc turns a symbol's latest price into the model's feature row.
type FeatureFunc func(symbol string, price float64) []float64

// PriceOnly feeds the latest price as the only feature.
func PriceOnly(_ string, price float64) []float64 { return []float64{price} }

// LiveSystem runs the signal-to-order loop against a paper broker.
type LiveSystem struct {
	Symbols  []string
	Model    alpha.Model
	Broker   *PaperBroker
	Prices   PriceSource
	Features FeatureFunc
	Quantity decimal.Decimal // units bought per signal

	logger *slog.Logger
}

func NewLiveSystem(symbols []string, m alpha.Model, broker *PaperBroker, prices PriceSource, logger *slog.Logger) *LiveSystem {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LiveSystem{
		Symbols:  symbols,
		Model:    m,
		Broker:   broker,
		Prices:   prices,
		Features: PriceOnly,
		Quantity: decimal.NewFromInt(1),
		logger:   logger,
	}
}

// Step runs one iteration: price every symbol, score the ones that priced,
// and buy Quantity units wherever the model signals. Symbols that fail to
// price or fill are logged and skipped.
func (s *LiveSystem) Step(ctx context.Context) ([]Order, error) {
	s.logger.Info("live trading start", "symbols", len(s.Symbols))
	s.logger.Debug("broker state", "positions", s.Broker.Positions(), "cash", s.Broker.Cash().StringFixed(2))

	latest := make(map[string]float64, len(s.Symbols))
	for _, sym := range s.Symbols {
		p, err := s.Prices.LatestPrice(ctx, sym)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Error("price fetch failed", "symbol", sym, "err", err)
			continue
		}
		latest[sym] = p
	}
	if len(latest) == 0 {
		s.logger.Error("no prices retrieved; aborting iteration")
		return nil, ErrNoPrices
	}

	var placed []Order
	for _, sym := range s.Symbols {
		price, ok := latest[sym]
		if !ok {
			continue
		}
		score := s.Model.Score([][]float64{s.Features(sym, price)})[0]
		if !s.Model.Signal(score) {
			continue
		}
		s.logger.Info("buy signal", "symbol", sym, "score", score, "price", price)
		o, err := s.Broker.PlaceOrder(sym, s.Quantity, decimal.NewFromFloat(price))
		if err != nil {
			s.logger.Warn("order rejected", "symbol", sym, "err", err)
			continue
		}
		placed = append(placed, o)
	}
	s.logger.Info("live trading iteration complete", "orders", len(placed))
	return placed, nil
}

// Run calls Step every interval until ctx is done. Iteration errors are
// logged; only context cancellation stops the loop.
func (s *LiveSystem) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Step(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("iteration failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
