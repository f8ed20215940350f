package monitoring

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

func TestRecordComputation(t *testing.T) {
	okBefore := testutil.ToFloat64(computationsTotal.WithLabelValues("test_op", "ok"))
	errBefore := testutil.ToFloat64(computationsTotal.WithLabelValues("test_op", "error"))
	catBefore := testutil.ToFloat64(errorsTotal.WithLabelValues("EMPTY_BOOK"))

	RecordComputation("test_op", time.Now(), nil)
	RecordComputation("test_op", time.Now(), engerrors.NewEmptyBook("orderbook", "Analyze", "bids"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(computationsTotal.WithLabelValues("test_op", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(computationsTotal.WithLabelValues("test_op", "error")))
	assert.Equal(t, catBefore+1, testutil.ToFloat64(errorsTotal.WithLabelValues("EMPTY_BOOK")))
}

func TestRecordErrorUnknown(t *testing.T) {
	before := testutil.ToFloat64(errorsTotal.WithLabelValues("UNKNOWN"))
	RecordError(errors.New("plain"))
	assert.Equal(t, before+1, testutil.ToFloat64(errorsTotal.WithLabelValues("UNKNOWN")))
}

func TestRecordBacktest(t *testing.T) {
	buys := testutil.ToFloat64(backtestTradesTotal.WithLabelValues("buy"))
	sells := testutil.ToFloat64(backtestTradesTotal.WithLabelValues("sell"))

	RecordBacktest(&types.BacktestResult{Summary: types.TradeSummary{BuyCount: 3, SellCount: 2}})
	RecordBacktest(nil)

	assert.Equal(t, buys+3, testutil.ToFloat64(backtestTradesTotal.WithLabelValues("buy")))
	assert.Equal(t, sells+2, testutil.ToFloat64(backtestTradesTotal.WithLabelValues("sell")))
}

func TestMetricsHandler(t *testing.T) {
	UpdatePrice("BTCUSDT", 42000)
	RecordRateLimitRetry("binance", "klines")
	ObserveFetch("binance", "klines", 120*time.Millisecond)

	rec := httptest.NewRecorder()
	NewMetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `gridscope_last_price{symbol="BTCUSDT"} 42000`)
	assert.Contains(t, body, "gridscope_rate_limit_retries_total")
	assert.Contains(t, body, "gridscope_fetch_duration_seconds")
}

func TestHealthChecker(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHealthChecker(2 * time.Minute)
	h.now = func() time.Time { return now }

	status, code := h.Status()
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	h.RecordFetch()
	status, code = h.Status()
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, http.StatusOK, code)

	now = now.Add(3 * time.Minute)
	status, _ = h.Status()
	assert.Equal(t, "degraded", status.Status)

	for i := 0; i < 15; i++ {
		h.RecordFailure(errors.New("timeout"))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Len(t, body.Errors, maxHealthErrors)
}
