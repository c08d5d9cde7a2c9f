// Package signal standardizes payloads shared between market data, strategy, and the per-tick trader.
package signal

import (
	"time"
)

// OrderBook holds resting liquidity for one instrument as price ticks mapped to quantity.
// Ask quantities may be negative (competition convention); readers use the absolute value.
type OrderBook struct {
	Bids map[int]int `json:"bids"`
	Asks map[int]int `json:"asks"`
}

// Level is a single price level of an order book.
type Level struct {
	Price int
	Qty   int
}

// BestBid returns the highest bid level, ok=false when the bid side is empty.
func (b OrderBook) BestBid() (Level, bool) {
	var best Level
	found := false
	for px, qty := range b.Bids {
		if !found || px > best.Price {
			best = Level{Price: px, Qty: abs(qty)}
			found = true
		}
	}
	return best, found
}

// BestAsk returns the lowest ask level, ok=false when the ask side is empty.
func (b OrderBook) BestAsk() (Level, bool) {
	var best Level
	found := false
	for px, qty := range b.Asks {
		if !found || px < best.Price {
			best = Level{Price: px, Qty: abs(qty)}
			found = true
		}
	}
	return best, found
}

// Mid returns the average of best bid and best ask. A one-sided book has no mid.
func (b OrderBook) Mid() (float64, bool) {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return 0, false
	}
	return float64(bid.Price+ask.Price) / 2, true
}

// Spread returns best ask minus best bid for a two-sided book.
func (b OrderBook) Spread() (int, bool) {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return 0, false
	}
	return ask.Price - bid.Price, true
}

// Snapshot is everything the trader sees for one tick.
type Snapshot struct {
	Timestamp  int64                `json:"timestamp"`
	Books      map[string]OrderBook `json:"books"`
	Positions  map[string]int       `json:"positions"`
	TraderData string               `json:"trader_data"`
}

// Position returns the signed inventory for symbol; absent symbols are flat.
func (s Snapshot) Position(symbol string) int {
	return s.Positions[symbol]
}

// Quote is a top-of-book update emitted by market data feeds.
type Quote struct {
	Symbol string
	Bid    int
	BidQty int
	Ask    int
	AskQty int
	Ts     time.Time
}

// Book converts the quote into a single-level order book. Zero-priced sides are left empty.
func (q Quote) Book() OrderBook {
	book := OrderBook{Bids: map[int]int{}, Asks: map[int]int{}}
	if q.Bid > 0 && q.BidQty > 0 {
		book.Bids[q.Bid] = q.BidQty
	}
	if q.Ask > 0 && q.AskQty > 0 {
		book.Asks[q.Ask] = -q.AskQty
	}
	return book
}

// Decision is the comparator outcome for one instrument evaluation.
type Decision int

const (
	// Hold means do nothing this tick.
	Hold Decision = iota
	// Buy means lift the best ask.
	Buy
	// Sell means hit the best bid.
	Sell
	// Exit means flatten the current position at the touch.
	Exit
)

func (d Decision) String() string {
	switch d {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	case Exit:
		return "EXIT"
	default:
		return "HOLD"
	}
}

// Signal expresses a trading decision produced by the quote comparator.
type Signal struct {
	Symbol   string
	Decision Decision
	Score    float64 // normalized deviation of the traded price from fair value
	Reason   string
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
