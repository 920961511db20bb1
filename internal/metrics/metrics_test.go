package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goDCA/internal/core/tx"
)

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTransaction("Swap", "Success", time.Millisecond)
		m.HandleEvent(tx.Event{Type: tx.EventSwapped})
		m.ObserveSwapOutcome("swapped")
		m.ObserveQuote(time.Millisecond)
		m.ObserveQuoteCache(true)
		m.SetWatchedPairs(3)
		m.ObserveRPC("http", "pair", nil)
	})
}

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg, "dcad")
	require.NoError(t, err)

	t.Run("transactions", func(t *testing.T) {
		m.ObserveTransaction("Swap", "Success", time.Millisecond)
		m.ObserveTransaction("Swap", "Success", time.Millisecond)
		m.ObserveTransaction("Swap", "PairSwapNotNeeded", time.Millisecond)
		assert.Equal(t, 2.0, testutil.ToFloat64(m.TransactionsTotal.WithLabelValues("Swap", "Success")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.TransactionsTotal.WithLabelValues("Swap", "PairSwapNotNeeded")))
	})

	t.Run("events and outcomes", func(t *testing.T) {
		m.HandleEvent(tx.Event{Type: tx.EventDeposited})
		m.ObserveSwapOutcome("skip_unprofitable")
		m.ObserveQuoteCache(false)
		m.ObserveQuoteCache(true)
		m.ObserveQuoteCache(true)
		m.SetWatchedPairs(4)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("Deposited")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.SwapOutcomesTotal.WithLabelValues("skip_unprofitable")))
		assert.Equal(t, 2.0, testutil.ToFloat64(m.QuoteCacheTotal.WithLabelValues("hit")))
		assert.Equal(t, 4.0, testutil.ToFloat64(m.WatchedPairs.WithLabelValues()))
	})

	t.Run("rpc outcome", func(t *testing.T) {
		m.ObserveRPC("http", "deposit", errors.New("boom"))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCRequestsTotal.WithLabelValues("http", "deposit", "error")))
	})

	t.Run("double registration fails", func(t *testing.T) {
		_, err := New(reg, "dcad")
		assert.Error(t, err)
	})

	t.Run("handler", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		assert.Equal(t, 200, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), "dcad_transactions_total"))
	})
}
