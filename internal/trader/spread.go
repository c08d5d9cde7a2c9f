package trader

import (
	"math"

	"tickbot-go/internal/config"
	"tickbot-go/internal/execution"
	"tickbot-go/internal/metrics"
	"tickbot-go/internal/risk"
	"tickbot-go/internal/signal"
	"tickbot-go/internal/state"
	"tickbot-go/internal/strategy"
)

// SpreadLeg is one weighted product of a spread basket.
type SpreadLeg struct {
	Symbol string
	Weight float64
	Limit  int
}

// Spread trades the weighted sum of leg mids against its own rolling mean.
// Buying the spread buys positive-weight legs and sells the hedge legs.
type Spread struct {
	Name     string
	Legs     []SpreadLeg
	Strategy *strategy.Strategy
	Size     int // spread units per entry
}

// SpreadsFromConfig resolves the YAML spread table, sorted by name.
func SpreadsFromConfig(cfg *config.Config) []Spread {
	out := make([]Spread, 0, len(cfg.Spreads))
	for _, name := range cfg.SpreadNames() {
		out = append(out, BuildSpread(name, cfg.Spreads[name]))
	}
	return out
}

// BuildSpread turns a single config row into a Spread. Fair value is always the rolling mean.
func BuildSpread(name string, row config.Spread) Spread {
	params := strategy.Params{
		Window:    row.Window,
		Source:    string(strategy.SourceRolling),
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
	legs := make([]SpreadLeg, len(row.Legs))
	for i, leg := range row.Legs {
		legs[i] = SpreadLeg{Symbol: leg.Symbol, Weight: leg.Weight, Limit: leg.Limit}
	}
	size := row.Size
	if size <= 0 {
		size = 1
	}
	return Spread{Name: name, Legs: legs, Strategy: strategy.Build(params), Size: size}
}

type legQuote struct {
	leg      SpreadLeg
	bid      signal.Level
	ask      signal.Level
	position int
}

func (t *Trader) evaluateSpread(sp Spread, engine *strategy.SignalEngine, snap signal.Snapshot, keep state.Bookkeeping) (map[string][]execution.Order, state.Bookkeeping) {
	log := t.log.With().Str("spread", sp.Name).Int64("ts", snap.Timestamp).Logger()

	quotes := make([]legQuote, 0, len(sp.Legs))
	value := 0.0
	open := false
	for _, leg := range sp.Legs {
		book := snap.Books[leg.Symbol]
		bid, okBid := book.BestBid()
		ask, okAsk := book.BestAsk()
		if !okBid || !okAsk {
			est := engine.Current()
			log.Debug().Str("leg", leg.Symbol).Float64("fair", est.FairValue).Msg("spread leg has no two-sided book")
			return nil, keep
		}
		q := legQuote{leg: leg, bid: bid, ask: ask, position: snap.Position(leg.Symbol)}
		value += leg.Weight * float64(bid.Price+ask.Price) / 2
		open = open || q.position != 0
		quotes = append(quotes, q)
	}

	if !open && keep.Open {
		keep = closeTrade(keep)
	}

	est := engine.Observe(value)
	if est.Samples < sp.Strategy.Window() {
		return nil, keep
	}

	sig := sp.Strategy.Comparator().EvaluateSpread(est, value, open)
	sig.Symbol = sp.Name
	metrics.DecisionsTotal.WithLabelValues(sp.Name, sig.Decision.String()).Inc()

	switch sig.Decision {
	case signal.Exit:
		out := make(map[string][]execution.Order)
		flat := true
		for _, q := range quotes {
			batch := execution.NewBatch(q.leg.Symbol, q.position, q.leg.Limit)
			if flatten(batch, q.position, q.bid, q.ask) != abs(q.position) {
				flat = false
			}
			if !batch.Empty() {
				out[q.leg.Symbol] = batch.Orders()
			}
		}
		log.Debug().Float64("z", sig.Score).Str("reason", sig.Reason).Bool("flat", flat).Msg("spread exit")
		if flat {
			keep = closeTrade(keep)
		}
		return out, keep
	case signal.Buy, signal.Sell:
		dir := 1
		if sig.Decision == signal.Sell {
			dir = -1
		}
		units := hedgedUnits(sp, quotes, dir)
		if units <= 0 {
			log.Debug().Msg("no hedged size available")
			return nil, keep
		}
		out := make(map[string][]execution.Order)
		for _, q := range quotes {
			qty := int(math.Round(units * math.Abs(q.leg.Weight)))
			side, level := legSide(q, dir)
			batch := execution.NewBatch(q.leg.Symbol, q.position, q.leg.Limit)
			batch.Emit(side, level.Price, qty)
			if !batch.Empty() {
				out[q.leg.Symbol] = batch.Orders()
			}
		}
		log.Debug().Float64("z", sig.Score).Str("reason", sig.Reason).Float64("units", units).Msg("spread entry")
		if !keep.Open {
			keep.Open = true
			keep.EntryPrice = value
			keep.PeakPnL = 0
		}
		keep.Direction = dir
		keep.Entered = true
		keep.LastEntryTs = snap.Timestamp
		return out, keep
	}
	return nil, keep
}

// hedgedUnits is the largest whole number of spread units every leg can carry, capped by Size.
// Zero when any leg would round to an empty order.
func hedgedUnits(sp Spread, quotes []legQuote, dir int) float64 {
	units := float64(sp.Size)
	for _, q := range quotes {
		weight := math.Abs(q.leg.Weight)
		side, level := legSide(q, dir)
		decision := signal.Buy
		if side == execution.Sell {
			decision = signal.Sell
		}
		capacity := risk.Size(decision, level.Qty, q.position, q.leg.Limit, q.leg.Limit)
		units = math.Min(units, math.Floor(float64(capacity)/weight))
	}
	for _, q := range quotes {
		if math.Round(units*math.Abs(q.leg.Weight)) < 1 {
			return 0
		}
	}
	return units
}

// legSide maps a spread direction onto the leg's side and the touch it trades against.
func legSide(q legQuote, dir int) (execution.Side, signal.Level) {
	if float64(dir)*q.leg.Weight > 0 {
		return execution.Buy, q.ask
	}
	return execution.Sell, q.bid
}
