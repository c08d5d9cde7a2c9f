// Package strategy turns order book snapshots into fair-value estimates and trade decisions.
package strategy

import (
	"strings"

	"tickbot-go/internal/signal"
)

// FairValueSource selects where an instrument's fair value comes from.
type FairValueSource string

const (
	// SourceRolling uses the rolling mean of observed mid prices.
	SourceRolling FairValueSource = "rolling"
	// SourceFixed pins fair value to the configured seed; the window still feeds volatility.
	SourceFixed FairValueSource = "fixed"
)

// ParseFairValueSource maps a config string onto a source, defaulting to rolling.
func ParseFairValueSource(raw string) FairValueSource {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "fixed", "static", "constant":
		return SourceFixed
	default:
		return SourceRolling
	}
}

// Estimate is the engine's view of an instrument after an update.
type Estimate struct {
	FairValue  float64
	Volatility float64
	Samples    int
	Fresh      bool // false when this tick contributed no sample
}

// SignalEngine maintains one instrument's rolling mid-price window.
type SignalEngine struct {
	window *RollingWindow
	seed   float64
	source FairValueSource
}

// NewSignalEngine builds an engine over a restored history window.
func NewSignalEngine(capacity int, seed float64, source FairValueSource, history []float64) *SignalEngine {
	if source == "" {
		source = SourceRolling
	}
	return &SignalEngine{
		window: RestoreWindow(capacity, history),
		seed:   seed,
		source: source,
	}
}

// Update samples the book's mid price. One-sided or empty books leave the window untouched.
func (e *SignalEngine) Update(book signal.OrderBook) Estimate {
	mid, ok := book.Mid()
	if !ok {
		return e.estimate(false)
	}
	return e.Observe(mid)
}

// Observe pushes an externally computed sample such as a spread or a mid.
func (e *SignalEngine) Observe(sample float64) Estimate {
	e.window.Push(sample)
	return e.estimate(true)
}

// Current returns the estimate of the window as it stands.
func (e *SignalEngine) Current() Estimate { return e.estimate(false) }

// History returns the window contents ordered oldest to newest for persistence.
func (e *SignalEngine) History() []float64 { return e.window.Values() }

func (e *SignalEngine) estimate(fresh bool) Estimate {
	fair := e.seed
	if e.source == SourceRolling {
		if mean, ok := e.window.Mean(); ok {
			fair = mean
		}
	}
	return Estimate{
		FairValue:  fair,
		Volatility: e.window.StdDev(),
		Samples:    e.window.Len(),
		Fresh:      fresh,
	}
}
