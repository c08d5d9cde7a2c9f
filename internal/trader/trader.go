// Package trader runs one tick of the table-driven market-making loop.
package trader

import (
	"math"

	"github.com/rs/zerolog"

	"tickbot-go/internal/execution"
	"tickbot-go/internal/metrics"
	"tickbot-go/internal/signal"
	"tickbot-go/internal/state"
	"tickbot-go/internal/strategy"
)

// Result is what one tick hands back to the exchange harness.
type Result struct {
	Orders      map[string][]execution.Order `json:"orders"`
	Conversions int                          `json:"conversions"`
	TraderData  string                       `json:"trader_data"`
}

// Trader evaluates every configured instrument against a snapshot.
// It keeps no memory between calls; everything it needs comes back in TraderData.
type Trader struct {
	instruments []Instrument
	spreads     []Spread
	conversions int
	log         zerolog.Logger
}

// Option configures Trader construction parameters.
type Option func(*Trader)

// WithConversions sets the conversion request returned every tick.
func WithConversions(n int) Option {
	return func(t *Trader) { t.conversions = n }
}

// WithSpreads adds spread baskets evaluated after the standalone instruments.
func WithSpreads(spreads []Spread) Option {
	return func(t *Trader) { t.spreads = append(t.spreads, spreads...) }
}

// New builds a trader over the instrument table.
func New(instruments []Instrument, log zerolog.Logger, opts ...Option) *Trader {
	t := &Trader{
		instruments: append([]Instrument(nil), instruments...),
		log:         log,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Instruments returns every traded symbol in evaluation order, spread legs included.
func (t *Trader) Instruments() []string {
	out := make([]string, 0, len(t.instruments))
	for _, inst := range t.instruments {
		out = append(out, inst.Symbol)
	}
	for _, sp := range t.spreads {
		for _, leg := range sp.Legs {
			out = append(out, leg.Symbol)
		}
	}
	return out
}

// Run evaluates one tick. It never fails: unreadable trader data restarts history.
func (t *Trader) Run(snap signal.Snapshot) Result {
	prior, err := state.Restore(snap.TraderData)
	if err != nil {
		metrics.StateDecodeFailures.Inc()
		t.log.Warn().Err(err).Int64("ts", snap.Timestamp).Msg("discarding unreadable trader data")
	}

	next := state.New()
	result := Result{Orders: make(map[string][]execution.Order), Conversions: t.conversions}

	for _, inst := range t.instruments {
		sym := inst.Symbol
		metrics.TicksTotal.WithLabelValues(sym).Inc()

		engine := inst.Strategy.Engine(prior.Windows[sym])
		keep := prior.Books[sym]
		position := snap.Position(sym)

		orders, keep := t.evaluate(inst, engine.Update(snap.Books[sym]), snap.Books[sym], position, snap.Timestamp, keep)
		if history := engine.History(); len(history) > 0 {
			next.Windows[sym] = history
		}
		if keep != (state.Bookkeeping{}) {
			next.Books[sym] = keep
		}
		if len(orders) > 0 {
			result.Orders[sym] = orders
		}
	}

	for _, sp := range t.spreads {
		metrics.TicksTotal.WithLabelValues(sp.Name).Inc()
		engine := sp.Strategy.Engine(prior.Windows[sp.Name])
		orders, keep := t.evaluateSpread(sp, engine, snap, prior.Books[sp.Name])
		if history := engine.History(); len(history) > 0 {
			next.Windows[sp.Name] = history
		}
		if keep != (state.Bookkeeping{}) {
			next.Books[sp.Name] = keep
		}
		for sym, legOrders := range orders {
			result.Orders[sym] = legOrders
		}
	}

	blob, err := state.Encode(next)
	if err != nil {
		t.log.Error().Err(err).Msg("encode trader data")
	}
	result.TraderData = blob
	return result
}

func (t *Trader) evaluate(inst Instrument, est strategy.Estimate, book signal.OrderBook, position int, ts int64, keep state.Bookkeeping) ([]execution.Order, state.Bookkeeping) {
	sym := inst.Symbol
	log := t.log.With().Str("sym", sym).Int64("ts", ts).Logger()

	bid, okBid := book.BestBid()
	ask, okAsk := book.BestAsk()
	if !okBid || !okAsk {
		log.Debug().Bool("bid", okBid).Bool("ask", okAsk).Msg("insufficient market data")
		return nil, keep
	}

	// Position went flat since last tick: the trade is closed.
	if position == 0 && keep.Open {
		keep = closeTrade(keep)
	}

	if inst.MaxSpread > 0 && ask.Price-bid.Price > inst.MaxSpread {
		log.Debug().Int("spread", ask.Price-bid.Price).Msg("spread too wide")
		return nil, keep
	}
	if inst.MaxVolatility > 0 && est.Volatility > inst.MaxVolatility {
		log.Debug().Float64("vol", est.Volatility).Msg("volatility above cap")
		return nil, keep
	}

	batch := execution.NewBatch(sym, position, inst.Sizer.Limit)
	mid := float64(bid.Price+ask.Price) / 2

	if keep.Open && position != 0 {
		unrealized := (mid - keep.EntryPrice) * float64(position)
		keep.PeakPnL = math.Max(keep.PeakPnL, unrealized)
		stopped := inst.StopLoss > 0 && unrealized < -inst.StopLoss
		trailed := inst.TrailingStop > 0 && keep.PeakPnL > 0 && unrealized < keep.PeakPnL*(1-inst.TrailingStop)
		if stopped || trailed {
			log.Info().Float64("pnl", unrealized).Float64("peak", keep.PeakPnL).Bool("stop", stopped).Msg("risk exit")
			metrics.DecisionsTotal.WithLabelValues(sym, signal.Exit.String()).Inc()
			if flatten(batch, position, bid, ask) == abs(position) {
				keep = closeTrade(keep)
				keep.LastEntryTs = ts
			}
			return batch.Orders(), keep
		}
	}

	sig := inst.Strategy.Comparator().Evaluate(est, &bid, &ask, position)
	sig.Symbol = sym
	metrics.DecisionsTotal.WithLabelValues(sym, sig.Decision.String()).Inc()

	switch sig.Decision {
	case signal.Exit:
		log.Debug().Float64("z", sig.Score).Str("reason", sig.Reason).Msg("exit")
		// A partial flatten leaves the trade open so stops keep tracking the remainder.
		if flatten(batch, position, bid, ask) == abs(position) {
			keep = closeTrade(keep)
		}
	case signal.Buy, signal.Sell:
		if keep.Entered && inst.Cooldown > 0 && ts-keep.LastEntryTs < inst.Cooldown {
			log.Debug().Int64("since", ts-keep.LastEntryTs).Msg("cooling down")
			break
		}
		side, level := execution.Buy, ask
		if sig.Decision == signal.Sell {
			side, level = execution.Sell, bid
		}
		qty := inst.Sizer.Size(sig.Decision, level.Qty, position, sig.Score)
		order := batch.Emit(side, level.Price, qty)
		if order == nil {
			break
		}
		log.Debug().Float64("z", sig.Score).Str("reason", sig.Reason).Int("qty", order.Quantity).Msg("entry")
		if !keep.Open {
			keep.Open = true
			keep.EntryPrice = float64(level.Price)
			keep.PeakPnL = 0
		}
		keep.Entered = true
		keep.LastEntryTs = ts
	}
	return batch.Orders(), keep
}

// flatten emits the order that closes position at the touch, bounded by resting size.
// It returns the quantity actually emitted.
func flatten(batch *execution.Batch, position int, bid, ask signal.Level) int {
	var order *execution.Order
	switch {
	case position > 0:
		order = batch.Emit(execution.Sell, bid.Price, min(position, bid.Qty))
	case position < 0:
		order = batch.Emit(execution.Buy, ask.Price, min(-position, ask.Qty))
	}
	if order == nil {
		return 0
	}
	return order.Size()
}

func closeTrade(keep state.Bookkeeping) state.Bookkeeping {
	keep.Open = false
	keep.EntryPrice = 0
	keep.PeakPnL = 0
	keep.Direction = 0
	return keep
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
