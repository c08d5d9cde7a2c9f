// Package execution turns trade decisions into order intents and hands them to a venue.
package execution

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tickbot-go/internal/metrics"
)

// Side enumerates order directions used by the executor.
type Side string

const (
	// Buy indicates a long order.
	Buy Side = "BUY"
	// Sell indicates a short order.
	Sell Side = "SELL"
)

// Order is a limit order intent. Quantity is signed: positive buys, negative sells.
type Order struct {
	Symbol   string `json:"symbol"`
	Price    int    `json:"price"`
	Quantity int    `json:"quantity"`
}

// Side derives the direction from the quantity sign.
func (o Order) Side() Side {
	if o.Quantity < 0 {
		return Sell
	}
	return Buy
}

// Size returns the unsigned quantity.
func (o Order) Size() int {
	if o.Quantity < 0 {
		return -o.Quantity
	}
	return o.Quantity
}

// Fill records an executed (possibly partial) order.
type Fill struct {
	ID     string    `json:"id"`
	Symbol string    `json:"symbol"`
	Side   Side      `json:"side"`
	Qty    int       `json:"qty"`
	Price  int       `json:"price"`
	Tick   int64     `json:"tick"`
	Ts     time.Time `json:"ts"`
}

// NewFill stamps a fill with a fresh identifier.
func NewFill(symbol string, side Side, qty, price int, tick int64, ts time.Time) Fill {
	return Fill{
		ID:     uuid.NewString(),
		Symbol: symbol,
		Side:   side,
		Qty:    qty,
		Price:  price,
		Tick:   tick,
		Ts:     ts,
	}
}

// Executor implements a logger-backed submitter for orders.
type Executor struct{ log zerolog.Logger }

// NewExecutor wraps a zerolog logger for order submissions.
func NewExecutor(log zerolog.Logger) *Executor { return &Executor{log: log} }

// Submit records the order intent; the paper harness decides how much of it fills.
func (executor *Executor) Submit(order Order) error {
	metrics.OrdersTotal.WithLabelValues(order.Symbol, string(order.Side())).Inc()
	executor.log.Info().
		Str("sym", order.Symbol).
		Str("side", string(order.Side())).
		Int("qty", order.Size()).
		Int("px", order.Price).
		Msg("submit order")
	return nil
}
