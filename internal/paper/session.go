package paper

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tickbot-go/internal/execution"
	"tickbot-go/internal/metrics"
	"tickbot-go/internal/risk"
	"tickbot-go/internal/signal"
	"tickbot-go/internal/state"
	"tickbot-go/internal/trader"
)

// Journal persists each tick for later replay.
type Journal interface {
	Append(ctx context.Context, snap signal.Snapshot, res trader.Result) error
}

// Session plays exchange for a Trader: it collects quotes, runs one tick at a time,
// fills the returned orders, and carries positions and trader data to the next tick.
type Session struct {
	trader   *trader.Trader
	account  *Account
	exec     *execution.Executor
	store    state.Store
	journal  Journal
	recorder FillRecorder
	limits   risk.Limits
	log      zerolog.Logger

	mu    sync.Mutex
	books map[string]signal.OrderBook
	ts    int64
	step  int64
}

// SessionOption configures optional session collaborators.
type SessionOption func(*Session)

// WithStore sets where trader data lives between ticks.
func WithStore(store state.Store) SessionOption {
	return func(s *Session) {
		if store != nil {
			s.store = store
		}
	}
}

// WithJournal records every tick.
func WithJournal(j Journal) SessionOption {
	return func(s *Session) { s.journal = j }
}

// WithRecorder receives every fill.
func WithRecorder(r FillRecorder) SessionOption {
	return func(s *Session) { s.recorder = r }
}

// WithLimits rejects orders whose notional exceeds the per-trade cap.
func WithLimits(limits risk.Limits) SessionOption {
	return func(s *Session) { s.limits = limits }
}

// WithTimestampStep sets how far the snapshot timestamp advances per tick.
func WithTimestampStep(step int64) SessionOption {
	return func(s *Session) {
		if step > 0 {
			s.step = step
		}
	}
}

const defaultTimestampStep = 100

// NewSession wires a trader to a paper account.
func NewSession(t *trader.Trader, account *Account, log zerolog.Logger, opts ...SessionOption) *Session {
	s := &Session{
		trader:  t,
		account: account,
		exec:    execution.NewExecutor(log),
		store:   state.NewMemoryStore(),
		log:     log,
		books:   make(map[string]signal.OrderBook),
		step:    defaultTimestampStep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnQuote replaces the book for the quoted symbol.
func (s *Session) OnQuote(q signal.Quote) {
	s.mu.Lock()
	s.books[q.Symbol] = q.Book()
	s.mu.Unlock()
}

// ReplaceBooks swaps in a whole market: symbols absent from books are dropped.
func (s *Session) ReplaceBooks(books map[string]signal.OrderBook) {
	next := make(map[string]signal.OrderBook, len(books))
	for sym, book := range books {
		next[sym] = book
	}
	s.mu.Lock()
	s.books = next
	s.mu.Unlock()
}

// Account exposes the underlying paper account.
func (s *Session) Account() *Account { return s.account }

// Tick runs the trader once over the latest books and fills what it asks for.
// Timestamps come from the session clock, advancing one step per tick.
func (s *Session) Tick(ctx context.Context) (trader.Result, []execution.Fill, error) {
	s.mu.Lock()
	ts := s.ts
	s.mu.Unlock()
	return s.TickAt(ctx, ts)
}

// TickAt runs one tick stamped ts, as when replaying recorded snapshots.
// The session clock resumes one step after ts.
func (s *Session) TickAt(ctx context.Context, ts int64) (trader.Result, []execution.Fill, error) {
	s.mu.Lock()
	books := make(map[string]signal.OrderBook, len(s.books))
	for sym, book := range s.books {
		books[sym] = book
	}
	s.ts = ts + s.step
	s.mu.Unlock()

	blob, err := s.store.Load(ctx)
	if err != nil {
		return trader.Result{}, nil, fmt.Errorf("load trader data: %w", err)
	}
	snap := signal.Snapshot{
		Timestamp:  ts,
		Books:      books,
		Positions:  s.account.Positions(),
		TraderData: blob,
	}

	res := s.trader.Run(snap)
	fills := s.execute(snap, res)

	if err := s.store.Save(ctx, res.TraderData); err != nil {
		return res, fills, fmt.Errorf("save trader data: %w", err)
	}
	if s.journal != nil {
		if err := s.journal.Append(ctx, snap, res); err != nil {
			return res, fills, fmt.Errorf("journal tick: %w", err)
		}
	}
	return res, fills, nil
}

func (s *Session) execute(snap signal.Snapshot, res trader.Result) []execution.Fill {
	symbols := make([]string, 0, len(res.Orders))
	for sym := range res.Orders {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	now := time.Now()
	var fills []execution.Fill
	for _, sym := range symbols {
		for _, order := range res.Orders[sym] {
			if notional := s.account.Notional(order.Price, order.Size()); !s.limits.Allow(notional) {
				s.log.Warn().Str("sym", sym).Float64("notional", notional).Msg("order above notional cap")
				continue
			}
			if err := s.exec.Submit(order); err != nil {
				s.log.Warn().Err(err).Str("sym", sym).Msg("submit failed")
				continue
			}
			for _, fill := range Match(order, snap.Books[sym], snap.Timestamp, now) {
				if err := s.account.Apply(fill); err != nil {
					s.log.Error().Err(err).Str("sym", sym).Int("qty", fill.Qty).Msg("fill rejected")
					continue
				}
				if s.recorder != nil {
					s.recorder.Record(fill)
				}
				fills = append(fills, fill)
			}
		}
	}
	for _, sym := range s.trader.Instruments() {
		metrics.Position.WithLabelValues(sym).Set(float64(s.account.Position(sym)))
	}
	return fills
}

// Run feeds quotes into the session and ticks on the given interval until ctx ends.
func (s *Session) Run(ctx context.Context, quotes <-chan signal.Quote, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case q, ok := <-quotes:
			if !ok {
				return nil
			}
			s.OnQuote(q)
		case <-ticker.C:
			if _, _, err := s.Tick(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.log.Error().Err(err).Msg("tick failed")
			}
		}
	}
}
