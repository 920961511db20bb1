// Package metrics holds the Prometheus collectors of the daemon. A nil
// *Metrics is valid and records nothing, so components take one optionally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeJamon/goDCA/internal/core/tx"
)

// Metrics groups every collector registered by the daemon.
type Metrics struct {
	TransactionsTotal   *prometheus.CounterVec
	TransactionDuration *prometheus.HistogramVec
	EventsTotal         *prometheus.CounterVec

	SwapOutcomesTotal *prometheus.CounterVec
	QuoteDuration     *prometheus.HistogramVec
	QuoteCacheTotal   *prometheus.CounterVec
	WatchedPairs      *prometheus.GaugeVec

	RPCRequestsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with reg under namespace.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		TransactionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Submitted transactions by type and result code.",
		}, []string{"type", "result"}),
		TransactionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transaction_duration_seconds",
			Help:      "Time to apply a transaction, including callbacks.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"type"}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Published events by type.",
		}, []string{"type"}),
		SwapOutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swapper",
			Name:      "outcomes_total",
			Help:      "Per-pair dispatcher outcomes by status.",
		}, []string{"status"}),
		QuoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "swapper",
			Name:      "quote_duration_seconds",
			Help:      "Time to obtain a quote from the provider.",
			Buckets:   prometheus.DefBuckets,
		}, []string{}),
		QuoteCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swapper",
			Name:      "quote_cache_total",
			Help:      "Quote cache lookups by result.",
		}, []string{"result"}),
		WatchedPairs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "swapper",
			Name:      "watched_pairs",
			Help:      "Pairs on the dispatcher watch list.",
		}, []string{}),
		RPCRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "RPC requests by transport, method and outcome.",
		}, []string{"transport", "method", "outcome"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{
			m.TransactionsTotal,
			m.TransactionDuration,
			m.EventsTotal,
			m.SwapOutcomesTotal,
			m.QuoteDuration,
			m.QuoteCacheTotal,
			m.WatchedPairs,
			m.RPCRequestsTotal,
		} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// ObserveTransaction implements tx.Recorder.
func (m *Metrics) ObserveTransaction(txType, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TransactionsTotal.WithLabelValues(txType, result).Inc()
	m.TransactionDuration.WithLabelValues(txType).Observe(elapsed.Seconds())
}

// HandleEvent implements tx.EventSink.
func (m *Metrics) HandleEvent(ev tx.Event) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(string(ev.Type)).Inc()
}

// ObserveSwapOutcome counts one dispatcher outcome.
func (m *Metrics) ObserveSwapOutcome(status string) {
	if m == nil {
		return
	}
	m.SwapOutcomesTotal.WithLabelValues(status).Inc()
}

// ObserveQuote records the latency of one provider call.
func (m *Metrics) ObserveQuote(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.QuoteDuration.WithLabelValues().Observe(elapsed.Seconds())
}

// ObserveQuoteCache counts a cache hit or miss.
func (m *Metrics) ObserveQuoteCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.QuoteCacheTotal.WithLabelValues(result).Inc()
}

// SetWatchedPairs records the size of the watch list.
func (m *Metrics) SetWatchedPairs(n int) {
	if m == nil {
		return
	}
	m.WatchedPairs.WithLabelValues().Set(float64(n))
}

// ObserveRPC counts one request.
func (m *Metrics) ObserveRPC(transport, method string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RPCRequestsTotal.WithLabelValues(transport, method, outcome).Inc()
}

// Handler serves the collectors of g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

var (
	_ tx.Recorder  = (*Metrics)(nil)
	_ tx.EventSink = (*Metrics)(nil)
)
