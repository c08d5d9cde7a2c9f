package strategy

import (
	"fmt"
	"math"
	"strings"

	"tickbot-go/internal/signal"
)

// Epsilon keeps normalized deviations finite when the window has no dispersion.
const Epsilon = 1e-5

// Threshold converts an estimate into a price-distance band around fair value.
type Threshold func(est Estimate) float64

// FixedBand is a constant distance in price ticks.
func FixedBand(width float64) Threshold {
	return func(Estimate) float64 { return width }
}

// VolatilityBand is k standard deviations (Bollinger style).
func VolatilityBand(k float64) Threshold {
	return func(est Estimate) float64 { return k * est.Volatility }
}

// ZScoreBand gates on (price - fair) / (vol + ε) exceeding z.
func ZScoreBand(z float64) Threshold {
	return func(est Estimate) float64 { return z * (est.Volatility + Epsilon) }
}

// BuildThreshold maps a config kind onto a band constructor. Unknown kinds fall back to fixed.
func BuildThreshold(kind string, value float64) Threshold {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "vol", "volatility", "bollinger":
		return VolatilityBand(value)
	case "z", "zscore", "z_score":
		return ZScoreBand(value)
	default:
		return FixedBand(value)
	}
}

// Mode picks whether the comparator fades deviations or follows them.
type Mode string

const (
	// Reversion buys below fair value and sells above it.
	Reversion Mode = "reversion"
	// Momentum buys breakouts above the band and sells breakdowns below it.
	Momentum Mode = "momentum"
)

// ParseMode maps a config string onto a mode, defaulting to reversion.
func ParseMode(raw string) Mode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "momentum", "breakout", "trend":
		return Momentum
	default:
		return Reversion
	}
}

// Deviation is the normalized distance of price from fair value.
func Deviation(price float64, est Estimate) float64 {
	return (price - est.FairValue) / (est.Volatility + Epsilon)
}

// QuoteComparator decides buy, sell, exit, or hold from the touch and an estimate.
type QuoteComparator struct {
	mode  Mode
	entry Threshold
	exit  Threshold
}

// NewQuoteComparator builds a comparator; a nil exit band disables exits.
func NewQuoteComparator(mode Mode, entry, exit Threshold) *QuoteComparator {
	if entry == nil {
		entry = FixedBand(0)
	}
	if mode == "" {
		mode = Reversion
	}
	return &QuoteComparator{mode: mode, entry: entry, exit: exit}
}

// Mode returns the configured comparison mode.
func (c *QuoteComparator) Mode() Mode { return c.mode }

// Evaluate returns exactly one decision. Missing sides can only disable the trades that need them.
func (c *QuoteComparator) Evaluate(est Estimate, bid, ask *signal.Level, position int) signal.Signal {
	band := math.Max(0, c.entry(est))

	var buyEdge, sellEdge float64
	var buyPx, sellPx float64
	buyOK, sellOK := false, false

	switch c.mode {
	case Momentum:
		// Breakout up: even the bid clears the upper band, so lift the ask.
		if bid != nil && ask != nil {
			buyEdge = float64(bid.Price) - (est.FairValue + band)
			buyOK = buyEdge > 0
			buyPx = float64(ask.Price)
			sellEdge = (est.FairValue - band) - float64(ask.Price)
			sellOK = sellEdge > 0
			sellPx = float64(bid.Price)
		}
	default:
		if ask != nil {
			buyEdge = (est.FairValue - band) - float64(ask.Price)
			buyOK = buyEdge > 0
			buyPx = float64(ask.Price)
		}
		if bid != nil {
			sellEdge = float64(bid.Price) - (est.FairValue + band)
			sellOK = sellEdge > 0
			sellPx = float64(bid.Price)
		}
	}

	if buyOK && sellOK {
		if buyEdge >= sellEdge {
			sellOK = false
		} else {
			buyOK = false
		}
	}

	switch {
	case buyOK:
		return signal.Signal{
			Decision: signal.Buy,
			Score:    Deviation(buyPx, est),
			Reason:   fmt.Sprintf("%s buy edge=%.2f band=%.2f", c.mode, buyEdge, band),
		}
	case sellOK:
		return signal.Signal{
			Decision: signal.Sell,
			Score:    Deviation(sellPx, est),
			Reason:   fmt.Sprintf("%s sell edge=%.2f band=%.2f", c.mode, sellEdge, band),
		}
	}

	if position != 0 && c.exit != nil && bid != nil && ask != nil {
		mid := float64(bid.Price+ask.Price) / 2
		exitBand := math.Max(0, c.exit(est))
		if math.Abs(mid-est.FairValue) <= exitBand {
			return signal.Signal{
				Decision: signal.Exit,
				Score:    Deviation(mid, est),
				Reason:   fmt.Sprintf("reverted inside exit band %.2f", exitBand),
			}
		}
	}
	return signal.Signal{Decision: signal.Hold}
}

// EvaluateSpread compares a synthetic spread value against its estimate. There is no touch
// for a basket, so the value itself is tested against both bands. Buy means long the spread.
func (c *QuoteComparator) EvaluateSpread(est Estimate, value float64, open bool) signal.Signal {
	band := math.Max(0, c.entry(est))
	above := value - (est.FairValue + band)
	below := (est.FairValue - band) - value

	decision := signal.Hold
	edge := 0.0
	switch {
	case above > 0:
		decision, edge = signal.Sell, above
	case below > 0:
		decision, edge = signal.Buy, below
	}
	if c.mode == Momentum {
		switch decision {
		case signal.Buy:
			decision = signal.Sell
		case signal.Sell:
			decision = signal.Buy
		}
	}
	if decision != signal.Hold {
		return signal.Signal{
			Decision: decision,
			Score:    Deviation(value, est),
			Reason:   fmt.Sprintf("%s spread %s edge=%.2f band=%.2f", c.mode, strings.ToLower(decision.String()), edge, band),
		}
	}

	if open && c.exit != nil {
		exitBand := math.Max(0, c.exit(est))
		if math.Abs(value-est.FairValue) <= exitBand {
			return signal.Signal{
				Decision: signal.Exit,
				Score:    Deviation(value, est),
				Reason:   fmt.Sprintf("spread reverted inside exit band %.2f", exitBand),
			}
		}
	}
	return signal.Signal{Decision: signal.Hold}
}
