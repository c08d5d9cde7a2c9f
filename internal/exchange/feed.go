// Package exchange hosts top-of-book quote sources for the paper harness.
package exchange

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tickbot-go/internal/metrics"
	"tickbot-go/internal/signal"
)

const (
	// ProviderStub emits a seeded random walk of quotes (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance streams best bid/ask from Binance public websockets.
	ProviderBinance = "binance"
)

// Feed represents a pluggable market data stream implementation.
type Feed struct {
	provider     string
	symbols      []string
	log          zerolog.Logger
	pollInterval time.Duration
	tickSize     float64
	lotSize      float64
	seed         int64
	basePrices   map[string]int
	binanceURL   string
	mu           sync.RWMutex
}

// Option configures Feed construction parameters.
type Option func(*Feed)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultBinanceURL   = "wss://stream.binance.com:9443/stream"
	defaultStubPrice    = 1000
)

// WithPollInterval overrides the cadence of the stub feed.
func WithPollInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.pollInterval = d
		}
	}
}

// WithScale sets venue price per integer tick and quantity per integer lot.
func WithScale(tickSize, lotSize float64) Option {
	return func(f *Feed) {
		if tickSize > 0 {
			f.tickSize = tickSize
		}
		if lotSize > 0 {
			f.lotSize = lotSize
		}
	}
}

// WithStubSeed fixes the stub random walk.
func WithStubSeed(seed int64) Option {
	return func(f *Feed) { f.seed = seed }
}

// WithBasePrices sets where each stub symbol's walk starts, in ticks.
func WithBasePrices(prices map[string]int) Option {
	return func(f *Feed) {
		for sym, px := range prices {
			if px > 0 {
				f.basePrices[sym] = px
			}
		}
	}
}

// WithBinanceURL points the Binance provider at another endpoint.
func WithBinanceURL(url string) Option {
	return func(f *Feed) {
		if url != "" {
			f.binanceURL = strings.TrimSuffix(url, "/")
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider string, symbols []string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:     strings.ToLower(provider),
		log:          log,
		pollInterval: defaultPollInterval,
		tickSize:     1,
		lotSize:      1,
		seed:         1,
		basePrices:   make(map[string]int),
		binanceURL:   defaultBinanceURL,
	}
	f.setSymbols(symbols)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// setSymbols replaces the tracked symbol list (deduplicated, sorted for determinism).
func (f *Feed) setSymbols(symbols []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unique := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		unique[sym] = struct{}{}
	}
	f.symbols = f.symbols[:0]
	for sym := range unique {
		f.symbols = append(f.symbols, sym)
	}
	sort.Strings(f.symbols)
}

func (f *Feed) snapshotSymbols() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.symbols))
	copy(out, f.symbols)
	return out
}

// Run pushes quotes onto the provided channel until the context is canceled.
func (f *Feed) Run(ctx context.Context, out chan<- signal.Quote) error {
	switch f.provider {
	case ProviderBinance:
		return f.runBinance(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

func (f *Feed) runStub(ctx context.Context, out chan<- signal.Quote) error {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(f.seed))
	mids := make(map[string]int)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			for _, s := range f.snapshotSymbols() {
				mid, ok := mids[s]
				if !ok {
					mid = f.basePrices[s]
					if mid <= 0 {
						mid = defaultStubPrice
					}
				}
				mid += rng.Intn(5) - 2
				if mid < 2 {
					mid = 2
				}
				mids[s] = mid
				half := 1 + rng.Intn(2)
				quote := signal.Quote{
					Symbol: s,
					Bid:    mid - half,
					BidQty: 5 + rng.Intn(20),
					Ask:    mid + half,
					AskQty: 5 + rng.Intn(20),
					Ts:     ts,
				}
				select {
				case out <- quote:
					metrics.QuotesTotal.WithLabelValues(s).Inc()
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}
