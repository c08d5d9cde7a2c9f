package trader

import (
	"strings"

	"tickbot-go/internal/config"
	"tickbot-go/internal/risk"
	"tickbot-go/internal/strategy"
)

// Instrument is one resolved row of the strategy table.
type Instrument struct {
	Symbol        string
	Strategy      *strategy.Strategy
	Sizer         risk.Sizer
	Cooldown      int64 // measured in snapshot timestamp units, not ticks
	StopLoss      float64
	TrailingStop  float64
	MaxSpread     int
	MaxVolatility float64
}

// FromConfig resolves the YAML instrument table, sorted by symbol.
func FromConfig(cfg *config.Config) []Instrument {
	out := make([]Instrument, 0, len(cfg.Instruments))
	for _, sym := range cfg.Symbols() {
		out = append(out, BuildInstrument(sym, cfg.Instruments[sym]))
	}
	return out
}

// BuildInstrument turns a single config row into an Instrument.
func BuildInstrument(symbol string, row config.Instrument) Instrument {
	params := strategy.Params{
		Window:    row.Window,
		Seed:      row.Seed,
		Source:    row.FairValue,
		Mode:      row.Mode,
		EntryKind: row.Entry.Kind,
		Entry:     row.Entry.Value,
	}
	if row.Exit != nil {
		params.ExitKind = row.Exit.Kind
		if params.ExitKind == "" {
			params.ExitKind = "fixed"
		}
		params.Exit = row.Exit.Value
	}
	return Instrument{
		Symbol:        symbol,
		Strategy:      strategy.Build(params),
		Sizer:         risk.Sizer{Limit: row.Limit, MaxTrade: buildSizing(row.Sizing, row.Limit)},
		Cooldown:      row.Cooldown,
		StopLoss:      row.StopLoss,
		TrailingStop:  row.TrailingStop,
		MaxSpread:     row.MaxSpread,
		MaxVolatility: row.MaxVolatility,
	}
}

func buildSizing(s config.Sizing, limit int) risk.SizingFunc {
	base := s.Base
	if base <= 0 {
		base = limit
	}
	tiers := make([]risk.Tier, 0, len(s.Tiers))
	for _, t := range s.Tiers {
		tiers = append(tiers, risk.Tier{Above: t.Above, Size: t.Size})
	}
	switch strings.ToLower(strings.TrimSpace(s.Kind)) {
	case "inventory", "inventory_tiers":
		return risk.InventoryTiers(base, tiers)
	case "signal", "signal_tiers", "strength":
		return risk.SignalTiers(base, tiers)
	default:
		return risk.FixedSize(base)
	}
}
