package paper

import (
	"sort"
	"time"

	"tickbot-go/internal/execution"
	"tickbot-go/internal/signal"
)

// Match crosses a limit order against the resting book. Buys take asks priced at or
// below the limit, cheapest first; sells take bids at or above it, richest first.
// Each fill prints at the resting level's price. Unfilled remainder is dropped.
func Match(order execution.Order, book signal.OrderBook, tick int64, ts time.Time) []execution.Fill {
	remaining := order.Size()
	if remaining == 0 {
		return nil
	}
	side := order.Side()

	var levels map[int]int
	if side == execution.Buy {
		levels = book.Asks
	} else {
		levels = book.Bids
	}
	prices := make([]int, 0, len(levels))
	for px := range levels {
		if side == execution.Buy && px <= order.Price || side == execution.Sell && px >= order.Price {
			prices = append(prices, px)
		}
	}
	if side == execution.Buy {
		sort.Ints(prices)
	} else {
		sort.Sort(sort.Reverse(sort.IntSlice(prices)))
	}

	var fills []execution.Fill
	for _, px := range prices {
		if remaining == 0 {
			break
		}
		qty := min(remaining, abs(levels[px]))
		if qty == 0 {
			continue
		}
		fills = append(fills, execution.NewFill(order.Symbol, side, qty, px, tick, ts))
		remaining -= qty
	}
	return fills
}
