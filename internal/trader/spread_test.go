package trader

import (
	"testing"

	"github.com/rs/zerolog"

	"tickbot-go/internal/config"
	"tickbot-go/internal/signal"
	"tickbot-go/internal/state"
)

func jamBasket() config.Spread {
	return config.Spread{
		Window: 4,
		Mode:   "reversion",
		Entry:  config.Band{Kind: "zscore", Value: 1},
		Exit:   &config.Band{Kind: "zscore", Value: 0.2},
		Size:   10,
		Legs: []config.Leg{
			{Symbol: "JAMS", Weight: 1, Limit: 350},
			{Symbol: "CROISSANTS", Weight: -0.75, Limit: 250},
		},
	}
}

func newBasketTrader() *Trader {
	return New(nil, zerolog.Nop(), WithSpreads([]Spread{BuildSpread("JAM_BASKET", jamBasket())}))
}

func TestSpreadsFromConfig(t *testing.T) {
	cfg := &config.Config{Spreads: map[string]config.Spread{"JAM_BASKET": jamBasket()}}
	spreads := SpreadsFromConfig(cfg)
	if len(spreads) != 1 || spreads[0].Name != "JAM_BASKET" || len(spreads[0].Legs) != 2 {
		t.Fatalf("unexpected spreads %+v", spreads)
	}
	if spreads[0].Strategy.Window() != 4 || spreads[0].Size != 10 {
		t.Fatalf("unexpected spread shape %+v", spreads[0])
	}
	tr := New(nil, zerolog.Nop(), WithSpreads(spreads))
	if got := tr.Instruments(); len(got) != 2 || got[0] != "JAMS" || got[1] != "CROISSANTS" {
		t.Fatalf("expected leg symbols listed, got %v", got)
	}
}

func TestRunSpreadSellsRichBasket(t *testing.T) {
	tr := newBasketTrader()
	prior := state.New()
	prior.Windows["JAM_BASKET"] = []float64{0, 2, -2, 0}

	// value = 610 - 0.75*800 = 10, well above the window mean
	res := tr.Run(signal.Snapshot{
		Timestamp: 100,
		Books: map[string]signal.OrderBook{
			"JAMS":       {Bids: map[int]int{609: 20}, Asks: map[int]int{611: -20}},
			"CROISSANTS": {Bids: map[int]int{799: 20}, Asks: map[int]int{801: -20}},
		},
		TraderData: blobWith(t, prior),
	})

	jams := res.Orders["JAMS"]
	if len(jams) != 1 || jams[0].Quantity != -10 || jams[0].Price != 609 {
		t.Fatalf("expected sell 10 JAMS @ 609, got %+v", jams)
	}
	croissants := res.Orders["CROISSANTS"]
	if len(croissants) != 1 || croissants[0].Quantity != 8 || croissants[0].Price != 801 {
		t.Fatalf("expected hedge buy 8 CROISSANTS @ 801, got %+v", croissants)
	}

	s := decode(t, res.TraderData)
	keep := s.Books["JAM_BASKET"]
	if !keep.Open || keep.Direction != -1 || keep.EntryPrice != 10 || keep.LastEntryTs != 100 {
		t.Fatalf("unexpected spread bookkeeping %+v", keep)
	}
	if w := s.Windows["JAM_BASKET"]; len(w) != 4 || w[3] != 10 {
		t.Fatalf("expected spread value appended, got %v", w)
	}
}

func TestRunSpreadHedgeBoundByThinLeg(t *testing.T) {
	tr := newBasketTrader()
	prior := state.New()
	prior.Windows["JAM_BASKET"] = []float64{0, 2, -2, 0}

	res := tr.Run(signal.Snapshot{
		Timestamp: 100,
		Books: map[string]signal.OrderBook{
			"JAMS":       {Bids: map[int]int{609: 20}, Asks: map[int]int{611: -20}},
			"CROISSANTS": {Bids: map[int]int{799: 20}, Asks: map[int]int{801: -3}},
		},
		TraderData: blobWith(t, prior),
	})
	// 3 croissants carry 4 spread units
	if jams := res.Orders["JAMS"]; len(jams) != 1 || jams[0].Quantity != -4 {
		t.Fatalf("expected JAMS sized to the hedge, got %+v", jams)
	}
	if croissants := res.Orders["CROISSANTS"]; len(croissants) != 1 || croissants[0].Quantity != 3 {
		t.Fatalf("expected CROISSANTS buy 3, got %+v", croissants)
	}
}

func TestRunSpreadExitFlattensLegs(t *testing.T) {
	tr := newBasketTrader()
	prior := state.New()
	prior.Windows["JAM_BASKET"] = []float64{0, 1, -1, 0}
	prior.Books["JAM_BASKET"] = state.Bookkeeping{Open: true, Direction: -1, EntryPrice: 10, Entered: true, LastEntryTs: 100}

	res := tr.Run(signal.Snapshot{
		Timestamp: 200,
		Books: map[string]signal.OrderBook{
			"JAMS":       {Bids: map[int]int{599: 20}, Asks: map[int]int{601: -20}},
			"CROISSANTS": {Bids: map[int]int{799: 20}, Asks: map[int]int{801: -20}},
		},
		Positions:  map[string]int{"JAMS": -10, "CROISSANTS": 8},
		TraderData: blobWith(t, prior),
	})
	if jams := res.Orders["JAMS"]; len(jams) != 1 || jams[0].Quantity != 10 || jams[0].Price != 601 {
		t.Fatalf("expected buy 10 JAMS @ 601, got %+v", jams)
	}
	if croissants := res.Orders["CROISSANTS"]; len(croissants) != 1 || croissants[0].Quantity != -8 || croissants[0].Price != 799 {
		t.Fatalf("expected sell 8 CROISSANTS @ 799, got %+v", croissants)
	}
	keep := decode(t, res.TraderData).Books["JAM_BASKET"]
	if keep.Open || keep.Direction != 0 {
		t.Fatalf("expected spread trade closed, got %+v", keep)
	}
}

func TestRunSpreadMissingLegHolds(t *testing.T) {
	tr := newBasketTrader()
	prior := state.New()
	prior.Windows["JAM_BASKET"] = []float64{0, 2, -2, 0}

	res := tr.Run(signal.Snapshot{
		Timestamp: 100,
		Books: map[string]signal.OrderBook{
			"JAMS":       {Bids: map[int]int{609: 20}, Asks: map[int]int{611: -20}},
			"CROISSANTS": {Bids: map[int]int{799: 20}},
		},
		TraderData: blobWith(t, prior),
	})
	if len(res.Orders) != 0 {
		t.Fatalf("expected no orders with a one-sided leg, got %+v", res.Orders)
	}
	if w := decode(t, res.TraderData).Windows["JAM_BASKET"]; len(w) != 4 || w[3] != 0 {
		t.Fatalf("expected spread window untouched, got %v", w)
	}
}

func TestRunSpreadWarmsUpBeforeTrading(t *testing.T) {
	tr := newBasketTrader()
	res := tr.Run(signal.Snapshot{
		Timestamp: 100,
		Books: map[string]signal.OrderBook{
			"JAMS":       {Bids: map[int]int{609: 20}, Asks: map[int]int{611: -20}},
			"CROISSANTS": {Bids: map[int]int{799: 20}, Asks: map[int]int{801: -20}},
		},
	})
	if len(res.Orders) != 0 {
		t.Fatalf("expected no orders before the window fills, got %+v", res.Orders)
	}
}
