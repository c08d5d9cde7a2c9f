package paper

import (
	"sort"
	"sync"

	"tickbot-go/internal/execution"
)

// FillStats aggregates one symbol's paper fills.
type FillStats struct {
	Fills    int
	Bought   int
	Sold     int
	Turnover int64 // sum of price*qty, in ticks
	LastTick int64
}

// Net is the signed quantity the fills added to inventory.
func (s FillStats) Net() int { return s.Bought - s.Sold }

// Ledger keeps a session's fills in tick order with running per-symbol totals.
type Ledger struct {
	mu    sync.Mutex
	fills []execution.Fill
	stats map[string]FillStats
}

// NewLedger returns an empty ledger with room for capacity fills.
func NewLedger(capacity int) *Ledger {
	return &Ledger{
		fills: make([]execution.Fill, 0, max(capacity, 0)),
		stats: make(map[string]FillStats),
	}
}

// Record adds fill and folds it into its symbol's totals.
func (l *Ledger) Record(fill execution.Fill) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fills = append(l.fills, fill)

	st := l.stats[fill.Symbol]
	st.Fills++
	switch fill.Side {
	case execution.Buy:
		st.Bought += fill.Qty
	case execution.Sell:
		st.Sold += fill.Qty
	}
	st.Turnover += int64(fill.Price) * int64(fill.Qty)
	st.LastTick = max(st.LastTick, fill.Tick)
	l.stats[fill.Symbol] = st
}

// Fills returns the fills at or after tick, oldest first.
func (l *Ledger) Fills(since int64) []execution.Fill {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := sort.Search(len(l.fills), func(i int) bool { return l.fills[i].Tick >= since })
	out := make([]execution.Fill, len(l.fills)-i)
	copy(out, l.fills[i:])
	return out
}

// Summary returns a copy of the per-symbol totals.
func (l *Ledger) Summary() map[string]FillStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]FillStats, len(l.stats))
	for sym, st := range l.stats {
		out[sym] = st
	}
	return out
}
