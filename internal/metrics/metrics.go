package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of instrument evaluations"},
		[]string{"symbol"},
	)
	QuotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "quotes_total", Help: "Top-of-book quotes received from the feed"},
		[]string{"symbol"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted"},
		[]string{"symbol", "side"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "decisions_total", Help: "Comparator decisions"},
		[]string{"symbol", "decision"},
	)
	StateDecodeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "state_decode_failures_total", Help: "Trader state blobs that failed to decode"},
	)
	Position = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "position", Help: "Signed inventory per instrument"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, QuotesTotal, OrdersTotal, DecisionsTotal, StateDecodeFailures, Position)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
