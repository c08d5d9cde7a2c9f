package execution

// Batch collects one instrument's order intents for a single tick.
// It allows at most one buy and one sell and keeps the worst-case position inside the limit.
type Batch struct {
	symbol   string
	position int
	limit    int
	buy      *Order
	sell     *Order
}

// NewBatch starts an empty batch for symbol at the current position.
func NewBatch(symbol string, position, limit int) *Batch {
	if limit < 0 {
		limit = -limit
	}
	return &Batch{symbol: symbol, position: position, limit: limit}
}

// Emit returns the intent for side at price, or nil when nothing may be sent.
// The quantity is trimmed to whatever headroom earlier intents in this batch left.
func (b *Batch) Emit(side Side, price, qty int) *Order {
	if qty <= 0 {
		return nil
	}
	switch side {
	case Buy:
		if b.buy != nil {
			return nil
		}
		// a resting sell may never fill, so it does not free up room
		qty = min(qty, b.limit-b.position)
		if qty <= 0 {
			return nil
		}
		b.buy = &Order{Symbol: b.symbol, Price: price, Quantity: qty}
		return b.buy
	case Sell:
		if b.sell != nil {
			return nil
		}
		qty = min(qty, b.limit+b.position)
		if qty <= 0 {
			return nil
		}
		b.sell = &Order{Symbol: b.symbol, Price: price, Quantity: -qty}
		return b.sell
	}
	return nil
}

// Orders returns the emitted intents, buy first.
func (b *Batch) Orders() []Order {
	out := make([]Order, 0, 2)
	if b.buy != nil {
		out = append(out, *b.buy)
	}
	if b.sell != nil {
		out = append(out, *b.sell)
	}
	return out
}

// Empty reports whether nothing was emitted.
func (b *Batch) Empty() bool { return b.buy == nil && b.sell == nil }
