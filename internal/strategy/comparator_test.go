package strategy

import (
	"testing"

	"tickbot-go/internal/signal"
)

func lvl(price, qty int) *signal.Level {
	return &signal.Level{Price: price, Qty: qty}
}

func TestEvaluateReversionNoTradeAtSeed(t *testing.T) {
	cmp := NewQuoteComparator(Reversion, FixedBand(0), nil)
	est := Estimate{FairValue: 2000}
	sig := cmp.Evaluate(est, lvl(1990, 5), lvl(2010, 5), 0)
	if sig.Decision != signal.Hold {
		t.Fatalf("expected hold, got %s", sig.Decision)
	}
}

func TestEvaluateReversionBuyBelowFair(t *testing.T) {
	cmp := NewQuoteComparator(Reversion, FixedBand(0), nil)
	est := Estimate{FairValue: 1995.5, Volatility: 1}
	sig := cmp.Evaluate(est, lvl(1970, 5), lvl(1980, 20), 0)
	if sig.Decision != signal.Buy {
		t.Fatalf("expected buy, got %s", sig.Decision)
	}
	if sig.Score >= 0 {
		t.Fatalf("expected negative deviation for cheap ask, got %.2f", sig.Score)
	}
}

func TestEvaluateReversionSellAboveFair(t *testing.T) {
	cmp := NewQuoteComparator(Reversion, FixedBand(300), nil)
	est := Estimate{FairValue: 7000}
	if sig := cmp.Evaluate(est, lvl(7200, 5), lvl(7210, 5), 0); sig.Decision != signal.Hold {
		t.Fatalf("expected hold inside band, got %s", sig.Decision)
	}
	if sig := cmp.Evaluate(est, lvl(7301, 5), lvl(7310, 5), 0); sig.Decision != signal.Sell {
		t.Fatalf("expected sell beyond band, got %s", sig.Decision)
	}
}

func TestEvaluateMomentumFollowsBreakout(t *testing.T) {
	cmp := NewQuoteComparator(Momentum, ZScoreBand(2), nil)
	est := Estimate{FairValue: 100, Volatility: 1}
	if sig := cmp.Evaluate(est, lvl(103, 5), lvl(104, 5), 0); sig.Decision != signal.Buy {
		t.Fatalf("expected momentum buy, got %s", sig.Decision)
	}
	if sig := cmp.Evaluate(est, lvl(96, 5), lvl(97, 5), 0); sig.Decision != signal.Sell {
		t.Fatalf("expected momentum sell, got %s", sig.Decision)
	}
	// A reversion comparator fades the same moves.
	rev := NewQuoteComparator(Reversion, ZScoreBand(2), nil)
	if sig := rev.Evaluate(est, lvl(103, 5), lvl(104, 5), 0); sig.Decision != signal.Sell {
		t.Fatalf("expected reversion sell, got %s", sig.Decision)
	}
}

func TestEvaluateExitWhenReverted(t *testing.T) {
	cmp := NewQuoteComparator(Reversion, VolatilityBand(2), FixedBand(1))
	est := Estimate{FairValue: 100, Volatility: 3}
	if sig := cmp.Evaluate(est, lvl(99, 5), lvl(101, 5), 10); sig.Decision != signal.Exit {
		t.Fatalf("expected exit, got %s", sig.Decision)
	}
	if sig := cmp.Evaluate(est, lvl(99, 5), lvl(101, 5), 0); sig.Decision != signal.Hold {
		t.Fatalf("flat position must not exit, got %s", sig.Decision)
	}
	if sig := cmp.Evaluate(est, lvl(101, 5), lvl(104, 5), -4); sig.Decision != signal.Hold {
		t.Fatalf("expected hold outside exit band, got %s", sig.Decision)
	}
}

func TestEvaluateMissingSides(t *testing.T) {
	cmp := NewQuoteComparator(Reversion, FixedBand(0), FixedBand(5))
	est := Estimate{FairValue: 100}
	if sig := cmp.Evaluate(est, nil, lvl(90, 5), 3); sig.Decision != signal.Buy {
		t.Fatalf("expected buy with ask only, got %s", sig.Decision)
	}
	if sig := cmp.Evaluate(est, nil, nil, 3); sig.Decision != signal.Hold {
		t.Fatalf("expected hold with empty book, got %s", sig.Decision)
	}
	mom := NewQuoteComparator(Momentum, FixedBand(0), nil)
	if sig := mom.Evaluate(est, lvl(120, 5), nil, 0); sig.Decision != signal.Hold {
		t.Fatalf("momentum needs both sides, got %s", sig.Decision)
	}
}

func TestEvaluateNeverBuyAndSell(t *testing.T) {
	for _, mode := range []Mode{Reversion, Momentum} {
		cmp := NewQuoteComparator(mode, FixedBand(1), FixedBand(0.5))
		est := Estimate{FairValue: 100, Volatility: 2}
		for bid := 90; bid <= 110; bid++ {
			for ask := 90; ask <= 110; ask++ {
				sig := cmp.Evaluate(est, lvl(bid, 1), lvl(ask, 1), 1)
				switch sig.Decision {
				case signal.Hold, signal.Buy, signal.Sell, signal.Exit:
				default:
					t.Fatalf("unexpected decision %d", sig.Decision)
				}
			}
		}
		// Crossed book where both edges qualify: the larger edge wins.
		sig := cmp.Evaluate(est, lvl(105, 1), lvl(90, 1), 0)
		if sig.Decision != signal.Buy && sig.Decision != signal.Sell {
			t.Fatalf("%s: expected one side on crossed book, got %s", mode, sig.Decision)
		}
	}
}

func TestEvaluateSpread(t *testing.T) {
	cmp := NewQuoteComparator(Reversion, ZScoreBand(1), ZScoreBand(0.2))
	est := Estimate{FairValue: 100, Volatility: 4}

	cases := []struct {
		name  string
		value float64
		open  bool
		want  signal.Decision
	}{
		{"rich spread sells", 105, false, signal.Sell},
		{"cheap spread buys", 95, false, signal.Buy},
		{"inside band holds", 102, false, signal.Hold},
		{"reverted with open legs exits", 100.5, true, signal.Exit},
		{"reverted but flat holds", 100.5, false, signal.Hold},
		{"between bands keeps the trade", 102, true, signal.Hold},
	}
	for _, tc := range cases {
		if got := cmp.EvaluateSpread(est, tc.value, tc.open).Decision; got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}

	momentum := NewQuoteComparator(Momentum, ZScoreBand(1), nil)
	if got := momentum.EvaluateSpread(est, 105, false).Decision; got != signal.Buy {
		t.Fatalf("expected momentum to buy a rich spread, got %s", got)
	}
}

func TestBuildThreshold(t *testing.T) {
	est := Estimate{FairValue: 10, Volatility: 2}
	if got := BuildThreshold("fixed", 3)(est); got != 3 {
		t.Fatalf("fixed band: got %.2f", got)
	}
	if got := BuildThreshold("bollinger", 2)(est); got != 4 {
		t.Fatalf("volatility band: got %.2f", got)
	}
	if got := BuildThreshold("zscore", 1)(est); got <= 2 {
		t.Fatalf("zscore band should include epsilon, got %.6f", got)
	}
}
