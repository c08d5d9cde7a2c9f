// Package paper simulates an exchange for the trader: it fills orders against the
// quoted book, tracks inventory and PnL, and carries trader data between ticks.
package paper

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"tickbot-go/internal/execution"
)

// FillRecorder captures paper fills for later inspection.
type FillRecorder interface {
	Record(execution.Fill)
}

type positionState struct {
	Qty     int
	AvgCost decimal.Decimal
}

// Account tracks virtual cash, realized PnL, and signed per-symbol positions while trading in paper mode.
// Cash may go negative; position limits are the only hard constraint.
type Account struct {
	mu           sync.Mutex
	startingCash decimal.Decimal
	cash         decimal.Decimal
	realizedPnL  decimal.Decimal
	tickValue    decimal.Decimal
	limits       map[string]int
	positions    map[string]positionState
}

// PositionSnapshot exposes a read-only view of a single symbol position.
type PositionSnapshot struct {
	Qty         int
	AvgCost     decimal.Decimal
	MarketValue decimal.Decimal
	Unrealized  decimal.Decimal
}

// Snapshot represents a thread-safe view of the account state, optionally marked to market using provided prices.
type Snapshot struct {
	Cash        decimal.Decimal
	RealizedPnL decimal.Decimal
	Equity      decimal.Decimal
	Positions   map[string]PositionSnapshot
}

// ErrPositionLimit is returned when a fill would push inventory past its limit.
var ErrPositionLimit = errors.New("position limit exceeded")

// NewAccount constructs an account with starting cash and per-symbol position limits.
// tickValue converts integer price ticks into cash; zero means one.
func NewAccount(startingCash float64, tickValue float64, limits map[string]int) *Account {
	tv := decimal.NewFromFloat(tickValue)
	if tickValue <= 0 {
		tv = decimal.NewFromInt(1)
	}
	caps := make(map[string]int, len(limits))
	for sym, limit := range limits {
		caps[sym] = limit
	}
	start := decimal.NewFromFloat(startingCash)
	return &Account{
		startingCash: start,
		cash:         start,
		tickValue:    tv,
		limits:       caps,
		positions:    make(map[string]positionState),
	}
}

// StartingCash returns the initial bankroll.
func (a *Account) StartingCash() decimal.Decimal { return a.startingCash }

// Apply books a fill, mutating cash, inventory, and realized PnL.
func (a *Account) Apply(fill execution.Fill) error {
	if fill.Qty <= 0 {
		return errors.New("quantity must be positive")
	}
	if fill.Price <= 0 {
		return errors.New("price must be positive")
	}
	signed := fill.Qty
	switch fill.Side {
	case execution.Buy:
	case execution.Sell:
		signed = -fill.Qty
	default:
		return errors.New("unknown order side")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	state := a.positions[fill.Symbol]
	newQty := state.Qty + signed
	if limit, ok := a.limits[fill.Symbol]; ok && abs(newQty) > limit {
		return fmt.Errorf("%w: %s would hold %d (limit %d)", ErrPositionLimit, fill.Symbol, newQty, limit)
	}

	price := decimal.NewFromInt(int64(fill.Price)).Mul(a.tickValue)
	notional := price.Mul(decimal.NewFromInt(int64(fill.Qty)))
	if fill.Side == execution.Buy {
		a.cash = a.cash.Sub(notional)
	} else {
		a.cash = a.cash.Add(notional)
	}

	switch {
	case state.Qty == 0 || sameSign(state.Qty, signed):
		held := decimal.NewFromInt(int64(abs(state.Qty)))
		added := decimal.NewFromInt(int64(fill.Qty))
		state.AvgCost = state.AvgCost.Mul(held).Add(notional).Div(held.Add(added))
	default:
		closed := min(abs(signed), abs(state.Qty))
		pnl := price.Sub(state.AvgCost).Mul(decimal.NewFromInt(int64(closed)))
		if state.Qty < 0 {
			pnl = pnl.Neg()
		}
		a.realizedPnL = a.realizedPnL.Add(pnl)
		if newQty != 0 && !sameSign(newQty, state.Qty) {
			state.AvgCost = price
		}
	}
	state.Qty = newQty

	if state.Qty == 0 {
		delete(a.positions, fill.Symbol)
	} else {
		a.positions[fill.Symbol] = state
	}
	return nil
}

// Snapshot returns a copy of balances, marked using the supplied mid prices (in ticks).
func (a *Account) Snapshot(marks map[string]float64) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	positions := make(map[string]PositionSnapshot, len(a.positions))
	equity := a.cash
	for sym, pos := range a.positions {
		snap := PositionSnapshot{Qty: pos.Qty, AvgCost: pos.AvgCost}
		if mark, ok := marks[sym]; ok && mark > 0 {
			px := decimal.NewFromFloat(mark).Mul(a.tickValue)
			qty := decimal.NewFromInt(int64(pos.Qty))
			snap.MarketValue = px.Mul(qty)
			snap.Unrealized = px.Sub(pos.AvgCost).Mul(qty)
		}
		positions[sym] = snap
		equity = equity.Add(snap.MarketValue)
	}

	return Snapshot{
		Cash:        a.cash,
		RealizedPnL: a.realizedPnL,
		Equity:      equity,
		Positions:   positions,
	}
}

// Notional values qty units at price ticks in account cash.
func (a *Account) Notional(price, qty int) float64 {
	return decimal.NewFromInt(int64(price)).Mul(a.tickValue).Mul(decimal.NewFromInt(int64(qty))).InexactFloat64()
}

// Position returns the signed position for the supplied symbol.
func (a *Account) Position(symbol string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.positions[symbol].Qty
}

// Positions returns a copy of every non-flat position.
func (a *Account) Positions() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int, len(a.positions))
	for sym, pos := range a.positions {
		out[sym] = pos.Qty
	}
	return out
}

// RealizedPnL returns total closed-trade profit and loss.
func (a *Account) RealizedPnL() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.realizedPnL
}

func sameSign(a, b int) bool { return (a > 0) == (b > 0) }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
