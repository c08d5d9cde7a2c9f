package exchange

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"tickbot-go/internal/metrics"
	"tickbot-go/internal/signal"
)

type binanceEnvelope struct {
	Stream string            `json:"stream"`
	Data   binanceBookTicker `json:"data"`
}

type binanceBookTicker struct {
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

func (f *Feed) runBinance(ctx context.Context, out chan<- signal.Quote) error {
	symbols := f.snapshotSymbols()
	if len(symbols) == 0 {
		return fmt.Errorf("binance feed requires at least one symbol")
	}

	streams := make([]string, len(symbols))
	for i, sym := range symbols {
		streams[i] = strings.ToLower(sym) + "@bookTicker"
	}

	url := fmt.Sprintf("%s?streams=%s", f.binanceURL, strings.Join(streams, "/"))
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeBinanceStream(ctx, url, symbols, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("binance feed disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *Feed) consumeBinanceStream(ctx context.Context, url string, symbols []string, out chan<- signal.Quote) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("provider", ProviderBinance).Strs("symbols", symbols).Msg("connected market data feed")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("binance ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		quote, err := f.parseBinanceMessage(message)
		if err != nil {
			f.log.Warn().Err(err).Msg("failed to decode binance message")
			continue
		}
		quote.Ts = time.Now()

		select {
		case out <- quote:
			metrics.QuotesTotal.WithLabelValues(quote.Symbol).Inc()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// parseBinanceMessage converts a combined-stream bookTicker payload into integer ticks and lots.
func (f *Feed) parseBinanceMessage(message []byte) (signal.Quote, error) {
	var env binanceEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		return signal.Quote{}, err
	}
	symbol := env.Data.Symbol
	if symbol == "" {
		symbol = parseBinanceSymbol(env.Stream)
	}
	bid, err := f.toTicks(env.Data.BidPrice)
	if err != nil {
		return signal.Quote{}, fmt.Errorf("bid price: %w", err)
	}
	ask, err := f.toTicks(env.Data.AskPrice)
	if err != nil {
		return signal.Quote{}, fmt.Errorf("ask price: %w", err)
	}
	bidQty, err := f.toLots(env.Data.BidQty)
	if err != nil {
		return signal.Quote{}, fmt.Errorf("bid qty: %w", err)
	}
	askQty, err := f.toLots(env.Data.AskQty)
	if err != nil {
		return signal.Quote{}, fmt.Errorf("ask qty: %w", err)
	}
	return signal.Quote{
		Symbol: strings.ToUpper(symbol),
		Bid:    bid,
		BidQty: bidQty,
		Ask:    ask,
		AskQty: askQty,
	}, nil
}

func (f *Feed) toTicks(raw string) (int, error) {
	px, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	return int(math.Round(px / f.tickSize)), nil
}

func (f *Feed) toLots(raw string) (int, error) {
	qty, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	return int(math.Floor(qty / f.lotSize)), nil
}

func parseBinanceSymbol(stream string) string {
	parts := strings.Split(stream, "@")
	if len(parts) == 0 || parts[0] == "" {
		return strings.ToUpper(stream)
	}
	return strings.ToUpper(parts[0])
}
