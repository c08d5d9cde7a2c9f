package main

import (
	"context"
	"flag"
	"os"
	"sort"

	"github.com/rs/zerolog"

	"tickbot-go/internal/config"
	"tickbot-go/internal/paper"
	"tickbot-go/internal/storage"
	"tickbot-go/internal/trader"
	"tickbot-go/internal/util"
)

func main() {
	config.LoadEnv()
	cfgPath := flag.String("config", config.Path(), "config file with the instrument table to test")
	journalPath := flag.String("journal", "", "journal recorded by cmd/paper (defaults to paper.journal_path)")
	verify := flag.Bool("verify", false, "replay journaled snapshots verbatim and check the trader answers identically")
	fillsPath := flag.String("fills", "", "summarize a fills file recorded by cmd/paper and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		l := util.NewLogger("info")
		l.Fatal().Err(err).Msg("load config")
	}
	config.ApplyEnv(cfg)
	log := util.NewLogger(cfg.App.LogLevel)

	if *fillsPath != "" {
		fills, err := paper.LoadFills(*fillsPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *fillsPath).Msg("load fills")
		}
		ledger := paper.NewLedger(len(fills))
		for _, fill := range fills {
			ledger.Record(fill)
		}
		logSummary(log, ledger)
		return
	}

	path := *journalPath
	if path == "" {
		path = cfg.Paper.JournalPath
	}
	journal, err := storage.OpenJournal(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("open journal")
	}
	defer journal.Close()

	ctx := context.Background()
	tr := trader.New(trader.FromConfig(cfg), log.Level(log.GetLevel()+1),
		trader.WithConversions(cfg.Paper.Conversions),
		trader.WithSpreads(trader.SpreadsFromConfig(cfg)),
	)

	if *verify {
		mismatches := 0
		err := journal.Replay(ctx, 0, func(e storage.Entry) error {
			if got := tr.Run(e.Snapshot); got.TraderData != e.Result.TraderData {
				mismatches++
				log.Warn().Int64("seq", e.Seq).Int64("ts", e.Snapshot.Timestamp).Msg("trader data diverged")
			}
			return nil
		})
		if err != nil {
			log.Fatal().Err(err).Msg("replay journal")
		}
		log.Info().Int("mismatches", mismatches).Msg("verify done")
		if mismatches > 0 {
			os.Exit(1)
		}
		return
	}

	account := paper.NewAccount(cfg.Paper.StartingCash, cfg.Exchange.TickSize, cfg.Limits())
	ledger := paper.NewLedger(1024)
	session := paper.NewSession(tr, account, log.Level(log.GetLevel()+1), paper.WithRecorder(ledger))

	marks := make(map[string]float64)
	ticks := 0
	err = journal.Replay(ctx, 0, func(e storage.Entry) error {
		session.ReplaceBooks(e.Snapshot.Books)
		for sym, book := range e.Snapshot.Books {
			if mid, ok := book.Mid(); ok {
				marks[sym] = mid
			}
		}
		ticks++
		_, _, err := session.TickAt(ctx, e.Snapshot.Timestamp)
		return err
	})
	if err != nil {
		log.Fatal().Err(err).Msg("backtest")
	}

	snap := account.Snapshot(marks)
	log.Info().
		Int("ticks", ticks).
		Int("fills", len(ledger.Fills(0))).
		Str("realized", snap.RealizedPnL.StringFixed(2)).
		Str("equity", snap.Equity.StringFixed(2)).
		Str("pnl", snap.Equity.Sub(account.StartingCash()).StringFixed(2)).
		Msg("backtest done")
	for sym, pos := range snap.Positions {
		log.Info().Str("sym", sym).Int("qty", pos.Qty).Str("unrealized", pos.Unrealized.StringFixed(2)).Msg("open position")
	}
	logSummary(log, ledger)
}

func logSummary(log zerolog.Logger, ledger *paper.Ledger) {
	summary := ledger.Summary()
	symbols := make([]string, 0, len(summary))
	for sym := range summary {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	for _, sym := range symbols {
		st := summary[sym]
		log.Info().
			Str("sym", sym).
			Int("fills", st.Fills).
			Int("bought", st.Bought).
			Int("sold", st.Sold).
			Int("net", st.Net()).
			Int64("turnover", st.Turnover).
			Int64("last_tick", st.LastTick).
			Msg("fill summary")
	}
}
