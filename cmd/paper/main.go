package main

import (
	"context"
	"errors"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tickbot-go/internal/config"
	"tickbot-go/internal/exchange"
	"tickbot-go/internal/metrics"
	"tickbot-go/internal/paper"
	"tickbot-go/internal/risk"
	"tickbot-go/internal/signal"
	"tickbot-go/internal/state"
	"tickbot-go/internal/storage"
	"tickbot-go/internal/trader"
	"tickbot-go/internal/util"
)

func main() {
	config.LoadEnv()
	cfg, err := config.Load(config.Path())
	if err != nil {
		l := util.NewLogger("info")
		l.Fatal().Err(err).Msg("load config")
	}
	config.ApplyEnv(cfg)
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var opts []paper.SessionOption
	opts = append(opts, paper.WithLimits(risk.Limits{MaxNotionalPerTrade: cfg.Paper.MaxNotional}))

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.State.Backend).Msg("open state store")
	}
	defer closeStore()
	opts = append(opts, paper.WithStore(store))

	if cfg.Paper.JournalPath != "" {
		journal, err := storage.OpenJournal(cfg.Paper.JournalPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open journal")
		}
		defer journal.Close()
		resume(ctx, log, store, journal)
		opts = append(opts, paper.WithJournal(journal))
	}

	ledger := paper.NewLedger(1024)
	recorders := paper.Recorders{ledger}
	if cfg.Paper.FillsPath != "" {
		recorder, err := paper.NewJSONLRecorder(cfg.Paper.FillsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open fills recorder")
		}
		defer recorder.Close()
		recorders = append(recorders, recorder)
	}
	opts = append(opts, paper.WithRecorder(recorders))

	instruments := trader.FromConfig(cfg)
	for _, inst := range instruments {
		log.Info().Str("sym", inst.Symbol).Str("strategy", inst.Strategy.Name()).Int("window", inst.Strategy.Window()).Int("limit", inst.Sizer.Limit).Msg("instrument loaded")
	}
	spreads := trader.SpreadsFromConfig(cfg)
	for _, sp := range spreads {
		log.Info().Str("spread", sp.Name).Str("strategy", sp.Strategy.Name()).Int("window", sp.Strategy.Window()).Int("legs", len(sp.Legs)).Msg("spread loaded")
	}
	basePrices := make(map[string]int, len(instruments))
	for sym, row := range cfg.Instruments {
		basePrices[sym] = int(row.Seed)
	}

	tr := trader.New(instruments, log, trader.WithConversions(cfg.Paper.Conversions), trader.WithSpreads(spreads))
	account := paper.NewAccount(cfg.Paper.StartingCash, cfg.Exchange.TickSize, cfg.Limits())
	session := paper.NewSession(tr, account, log, opts...)

	symbols := cfg.Exchange.Symbols
	if len(symbols) == 0 {
		symbols = tr.Instruments()
	}
	feed := exchange.NewFeed(cfg.Exchange.Provider, symbols, log,
		exchange.WithScale(cfg.Exchange.TickSize, cfg.Exchange.LotSize),
		exchange.WithStubSeed(cfg.Exchange.StubSeed),
		exchange.WithBasePrices(basePrices),
	)
	quotes := make(chan signal.Quote, 1024)

	interval := time.Duration(cfg.Paper.TickIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return feed.Run(gctx, quotes) })
	g.Go(func() error { return session.Run(gctx, quotes, interval) })

	log.Info().Strs("symbols", tr.Instruments()).Dur("interval", interval).Msg("paper engine started")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("paper engine stopped")
	}

	snap := account.Snapshot(nil)
	log.Info().
		Str("cash", snap.Cash.StringFixed(2)).
		Str("realized", snap.RealizedPnL.StringFixed(2)).
		Interface("positions", account.Positions()).
		Msg("shutting down")
	for sym, st := range ledger.Summary() {
		log.Info().Str("sym", sym).Int("fills", st.Fills).Int("net", st.Net()).Int64("turnover", st.Turnover).Msg("fill summary")
	}
}

func openStore(ctx context.Context, cfg *config.Config) (state.Store, func(), error) {
	if cfg.State.Backend != "redis" {
		return state.NewMemoryStore(), func() {}, nil
	}
	ttl := time.Duration(cfg.State.TTLSecs) * time.Second
	store, err := state.NewRedisStore(ctx, cfg.State.RedisAddr, cfg.State.RedisKey, ttl)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

// resume seeds an empty store with the last journaled trader data.
func resume(ctx context.Context, log zerolog.Logger, store state.Store, journal *storage.Journal) {
	if blob, err := store.Load(ctx); err != nil || blob != "" {
		return
	}
	blob, err := journal.LastTraderData(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("read journal for resume")
		return
	}
	if blob == "" {
		return
	}
	if err := store.Save(ctx, blob); err != nil {
		log.Warn().Err(err).Msg("seed state store")
		return
	}
	log.Info().Int("bytes", len(blob)).Msg("resumed trader data from journal")
}
