package paper

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tickbot-go/internal/config"
	"tickbot-go/internal/risk"
	"tickbot-go/internal/signal"
	"tickbot-go/internal/state"
	"tickbot-go/internal/trader"
)

type journalStub struct {
	snaps   []signal.Snapshot
	results []trader.Result
}

func (j *journalStub) Append(_ context.Context, snap signal.Snapshot, res trader.Result) error {
	j.snaps = append(j.snaps, snap)
	j.results = append(j.results, res)
	return nil
}

func resinSession(t *testing.T, log zerolog.Logger, opts ...SessionOption) *Session {
	t.Helper()
	row := config.Instrument{
		Seed:      10000,
		FairValue: "fixed",
		Entry:     config.Band{Kind: "fixed", Value: 0},
		Limit:     50,
		Sizing:    config.Sizing{Kind: "fixed", Base: 15},
	}
	tr := trader.New([]trader.Instrument{trader.BuildInstrument("RAINFOREST_RESIN", row)}, log)
	account := NewAccount(100000, 1, map[string]int{"RAINFOREST_RESIN": 50})
	return NewSession(tr, account, log, opts...)
}

func TestSessionAccumulatesUpToLimit(t *testing.T) {
	var buf bytes.Buffer
	store := state.NewMemoryStore()
	journal := &journalStub{}
	ledger := NewLedger(8)
	session := resinSession(t, zerolog.New(&buf), WithStore(store), WithJournal(journal), WithRecorder(ledger))

	session.OnQuote(signal.Quote{Symbol: "RAINFOREST_RESIN", Bid: 9998, BidQty: 5, Ask: 9999, AskQty: 20})

	ctx := context.Background()
	want := []int{15, 30, 45, 50, 50}
	for i, expected := range want {
		if _, _, err := session.Tick(ctx); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if got := session.Account().Position("RAINFOREST_RESIN"); got != expected {
			t.Fatalf("tick %d: expected position %d, got %d", i, expected, got)
		}
	}

	if len(ledger.Fills(0)) != 4 {
		t.Fatalf("expected 4 fills, got %d", len(ledger.Fills(0)))
	}
	if len(journal.snaps) != len(want) {
		t.Fatalf("expected every tick journaled, got %d", len(journal.snaps))
	}
	if journal.snaps[1].Timestamp != defaultTimestampStep {
		t.Fatalf("expected timestamps to advance by %d, got %d", defaultTimestampStep, journal.snaps[1].Timestamp)
	}
	if journal.snaps[1].Positions["RAINFOREST_RESIN"] != 15 {
		t.Fatalf("expected second snapshot to carry the first fill")
	}
	if journal.snaps[1].TraderData != journal.results[0].TraderData {
		t.Fatalf("expected trader data carried between ticks")
	}
	blob, _ := store.Load(ctx)
	if blob != journal.results[len(want)-1].TraderData {
		t.Fatalf("store should hold the latest trader data")
	}
	if !strings.Contains(buf.String(), "submit order") {
		t.Fatalf("expected executor log, got %s", buf.String())
	}
}

func TestSessionNotionalCapSkipsOrders(t *testing.T) {
	session := resinSession(t, zerolog.Nop(), WithLimits(risk.Limits{MaxNotionalPerTrade: 1000}))
	session.OnQuote(signal.Quote{Symbol: "RAINFOREST_RESIN", Bid: 9998, BidQty: 5, Ask: 9999, AskQty: 20})

	res, fills, err := session.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(res.Orders["RAINFOREST_RESIN"]) != 1 {
		t.Fatalf("trader should still ask for an order, got %+v", res.Orders)
	}
	if len(fills) != 0 || session.Account().Position("RAINFOREST_RESIN") != 0 {
		t.Fatalf("capped order must not fill")
	}
}

func TestSessionNoBooksNoOrders(t *testing.T) {
	journal := &journalStub{}
	session := resinSession(t, zerolog.Nop(), WithJournal(journal), WithTimestampStep(1000))
	for i := 0; i < 2; i++ {
		res, fills, err := session.Tick(context.Background())
		if err != nil {
			t.Fatalf("tick: %v", err)
		}
		if len(res.Orders) != 0 || len(fills) != 0 {
			t.Fatalf("expected nothing without market data")
		}
	}
	if journal.snaps[1].Timestamp != 1000 {
		t.Fatalf("expected custom timestamp step, got %d", journal.snaps[1].Timestamp)
	}
}

func TestSessionRunConsumesQuotes(t *testing.T) {
	session := resinSession(t, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	quotes := make(chan signal.Quote, 1)
	quotes <- signal.Quote{Symbol: "RAINFOREST_RESIN", Bid: 9998, BidQty: 5, Ask: 9999, AskQty: 20}

	done := make(chan error, 1)
	go func() { done <- session.Run(ctx, quotes, 10*time.Millisecond) }()

	deadline := time.After(time.Second)
	for session.Account().Position("RAINFOREST_RESIN") == 0 {
		select {
		case <-deadline:
			t.Fatalf("session never traded")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err == nil {
		t.Fatalf("expected context error on shutdown")
	}
}

func TestSessionTickAtReplaysRecordedMarket(t *testing.T) {
	journal := &journalStub{}
	session := resinSession(t, zerolog.Nop(), WithJournal(journal))
	ctx := context.Background()

	session.OnQuote(signal.Quote{Symbol: "STALE", Bid: 10, BidQty: 1, Ask: 11, AskQty: 1})
	resin := signal.Quote{Symbol: "RAINFOREST_RESIN", Bid: 9998, BidQty: 5, Ask: 9999, AskQty: 20}.Book()
	session.ReplaceBooks(map[string]signal.OrderBook{"RAINFOREST_RESIN": resin})
	if _, fills, err := session.TickAt(ctx, 5000); err != nil || len(fills) != 1 {
		t.Fatalf("expected one fill at the recorded tick, got %d err=%v", len(fills), err)
	}

	session.ReplaceBooks(map[string]signal.OrderBook{})
	res, fills, err := session.TickAt(ctx, 5200)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(res.Orders) != 0 || len(fills) != 0 {
		t.Fatalf("expected no trading once the book is gone, got %+v", res.Orders)
	}
	if _, _, err := session.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if journal.snaps[0].Timestamp != 5000 || journal.snaps[1].Timestamp != 5200 {
		t.Fatalf("expected recorded timestamps, got %d and %d", journal.snaps[0].Timestamp, journal.snaps[1].Timestamp)
	}
	if _, ok := journal.snaps[0].Books["STALE"]; ok {
		t.Fatalf("replaced market must drop books not in the recording")
	}
	if len(journal.snaps[1].Books) != 0 {
		t.Fatalf("expected empty market, got %v", journal.snaps[1].Books)
	}
	if journal.snaps[2].Timestamp != 5200+defaultTimestampStep {
		t.Fatalf("expected clock to resume after the replayed tick, got %d", journal.snaps[2].Timestamp)
	}
}
