// Package risk bounds order sizes against inventory limits and resting liquidity.
package risk

import (
	"math"
	"sort"

	"tickbot-go/internal/signal"
)

// Limits caps a single trade's notional value.
type Limits struct {
	MaxNotionalPerTrade float64
}

// Allow reports whether a trade's notional fits. A zero cap disables the check.
func (l Limits) Allow(notional float64) bool {
	if l.MaxNotionalPerTrade <= 0 {
		return true
	}
	return notional <= l.MaxNotionalPerTrade
}

// Headroom returns how much the position may still move in side's direction.
func Headroom(side signal.Decision, position, limit int) int {
	var room int
	switch side {
	case signal.Buy:
		room = limit - position
	case signal.Sell:
		room = limit + position
	}
	if room < 0 {
		return 0
	}
	return room
}

// Size returns min(liquidity, maxTrade, headroom), never negative. Zero means no order.
func Size(side signal.Decision, liquidity, position, limit, maxTrade int) int {
	if liquidity < 0 {
		liquidity = -liquidity
	}
	qty := min(liquidity, maxTrade, Headroom(side, position, limit))
	if qty < 0 {
		return 0
	}
	return qty
}

// SizingFunc yields the max trade size given inventory and signal strength (|normalized deviation|).
type SizingFunc func(position, limit int, strength float64) int

// FixedSize always allows n.
func FixedSize(n int) SizingFunc {
	return func(int, int, float64) int { return n }
}

// Tier applies Size once the tier's metric exceeds Above.
type Tier struct {
	Above float64
	Size  int
}

// InventoryTiers shrinks trade size as |position| grows past each tier's threshold.
func InventoryTiers(base int, tiers []Tier) SizingFunc {
	ordered := sortTiers(tiers)
	return func(position, _ int, _ float64) int {
		return pickTier(base, ordered, math.Abs(float64(position)))
	}
}

// SignalTiers scales trade size with signal strength.
func SignalTiers(base int, tiers []Tier) SizingFunc {
	ordered := sortTiers(tiers)
	return func(_, _ int, strength float64) int {
		return pickTier(base, ordered, math.Abs(strength))
	}
}

func sortTiers(tiers []Tier) []Tier {
	out := append([]Tier(nil), tiers...)
	sort.Slice(out, func(i, j int) bool { return out[i].Above > out[j].Above })
	return out
}

// pickTier walks tiers from the highest threshold down.
func pickTier(base int, ordered []Tier, metric float64) int {
	for _, tier := range ordered {
		if metric > tier.Above {
			return tier.Size
		}
	}
	return base
}

// Sizer couples a position limit with a pluggable max trade size.
type Sizer struct {
	Limit    int
	MaxTrade SizingFunc
}

// Size bounds the desired trade for side.
func (s Sizer) Size(side signal.Decision, liquidity, position int, strength float64) int {
	maxTrade := s.Limit
	if s.MaxTrade != nil {
		maxTrade = s.MaxTrade(position, s.Limit, strength)
	}
	return Size(side, liquidity, position, s.Limit, maxTrade)
}
