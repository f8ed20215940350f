package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/internal/monitoring"
	"github.com/ducminhle1904/gridscope/internal/screener"
	"github.com/ducminhle1904/gridscope/pkg/config"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

type stubSource struct {
	tickers []types.InstrumentSnapshot
	klines  map[string][]types.OHLCV
	depth   map[string]*types.DepthSnapshot
	err     error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Tickers(ctx context.Context) ([]types.InstrumentSnapshot, error) {
	return s.tickers, s.err
}

func (s *stubSource) Klines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.klines[symbol], nil
}

func (s *stubSource) Depth(ctx context.Context, symbol string, limit int) (*types.DepthSnapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	if d, ok := s.depth[symbol]; ok {
		return d, nil
	}
	return &types.DepthSnapshot{Symbol: symbol}, nil
}

func wave(n int, spreadPct float64) []types.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.OHLCV, n)
	for i := range out {
		c := 100 + 5*math.Sin(float64(i)/5)
		out[i] = types.OHLCV{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c * (1 + spreadPct/100),
			Low:       c * (1 - spreadPct/100),
			Close:     c,
			Volume:    1000,
		}
	}
	return out
}

func newTestServer(t *testing.T, src *stubSource) *httptest.Server {
	t.Helper()
	cfg := config.DefaultConfig()
	scr := screener.New(src, screener.ConfigFrom(cfg), nil)
	health := monitoring.NewHealthChecker(time.Minute)
	health.RecordFetch()

	srv := httptest.NewServer(NewService(cfg, src, scr, health, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func defaultSource() *stubSource {
	return &stubSource{
		tickers: []types.InstrumentSnapshot{
			{Symbol: "ETHUSDT", LastPrice: 2200, QuoteVolume24h: 5e8},
			{Symbol: "BTCUSDT", LastPrice: 42000, QuoteVolume24h: 9e8},
		},
		klines: map[string][]types.OHLCV{
			"ETHUSDT": wave(100, 1),
			"BTCUSDT": wave(100, 0.1),
		},
		depth: map[string]*types.DepthSnapshot{
			"BTCUSDT": {
				Symbol: "BTCUSDT",
				Bids:   []types.PriceLevel{{Price: 99, Quantity: 2}, {Price: 98, Quantity: 5}},
				Asks:   []types.PriceLevel{{Price: 100, Quantity: 1}, {Price: 101, Quantity: 3}},
			},
		},
	}
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestGridCalculate(t *testing.T) {
	srv := newTestServer(t, defaultSource())

	resp := postJSON(t, srv.URL+"/api/grid/calculate", `{"symbol": "ETH", "grid_count": 5, "investment": 1000}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	plan := decode[types.GridPlan](t, resp)
	assert.Equal(t, "ETH", plan.Symbol)
	assert.Equal(t, 2200.0, plan.CurrentPrice)
	assert.Len(t, plan.Levels, 5)
	assert.Greater(t, plan.UpperBound, plan.CurrentPrice)
}

func TestGridCalculate_Errors(t *testing.T) {
	srv := newTestServer(t, defaultSource())

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown symbol", `{"symbol": "DOGE", "investment": 1000}`, http.StatusNotFound},
		{"grid count below two", `{"symbol": "ETH", "grid_count": 1}`, http.StatusBadRequest},
		{"missing symbol", `{"grid_count": 5}`, http.StatusBadRequest},
		{"malformed body", `{"symbol":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/grid/calculate", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
			body := decode[map[string]string](t, resp)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestGridBacktest(t *testing.T) {
	srv := newTestServer(t, defaultSource())

	resp := postJSON(t, srv.URL+"/api/grid/backtest", `{"symbol": "eth", "grid_count": 6, "investment": 600}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[types.BacktestResult](t, resp)
	assert.Equal(t, 600.0, result.InitialInvestment)
	assert.Len(t, result.GridLevels, 6)
	assert.Equal(t, len(result.Trades), result.TradeCount)
	assert.InDelta(t, result.FinalValue-600, result.Profit, 1e-9)
}

func TestGridBacktest_EmptyHistory(t *testing.T) {
	srv := newTestServer(t, defaultSource())

	resp := postJSON(t, srv.URL+"/api/grid/backtest", `{"symbol": "XRP", "investment": 100}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestGridBacktest_InlineCandles(t *testing.T) {
	src := defaultSource()
	srv := newTestServer(t, src)

	body := `{"symbol": "DOGE", "grid_count": 3, "investment": 300, "candles": [
		[1709251200000, "101", "104", "100", "102", "10", 1709254799999, "1020", 5, "1", "1", "0"],
		[1709254800000, "104", "110", "104", "108", "12", 1709258399999, "1296", 6, "1", "1", "0"]
	]}`
	resp := postJSON(t, srv.URL+"/api/grid/backtest", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[types.BacktestResult](t, resp)
	assert.Equal(t, "DOGE", result.Symbol)
	assert.Equal(t, []float64{100, 105, 110}, result.GridLevels)
	assert.Equal(t, 4, result.TradeCount)
	assert.InDelta(t, 309.880952381, result.FinalValue, 1e-6)

	tests := []struct {
		name    string
		candles string
		want    int
	}{
		{"short row", `[[1709251200000, "101", "104"]]`, http.StatusUnprocessableEntity},
		{"zero low", `[[1709251200000, "1", "2", "0", "1", "1"], [1709254800000, "1", "2", "0.5", "1.5", "1"]]`, http.StatusUnprocessableEntity},
		{"out of order", `[[1709254800000, "104", "110", "104", "108", "12"], [1709251200000, "101", "104", "100", "102", "10"]]`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/grid/backtest", `{"symbol": "DOGE", "grid_count": 3, "candles": `+tt.candles+`}`)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestOrderBook(t *testing.T) {
	srv := newTestServer(t, defaultSource())

	resp := get(t, srv.URL+"/api/market/order-book/btc")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "BTCUSDT", body["symbol"])
	assert.Equal(t, 1.0, body["spread"])
	assert.Equal(t, 1.0, body["spread_percentage"])
	assert.NotEmpty(t, body["support_levels"])
	assert.NotEmpty(t, body["timestamp"])

	resp = get(t, srv.URL+"/api/market/order-book/EMPTY")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestMarketScans(t *testing.T) {
	srv := newTestServer(t, defaultSource())

	resp := get(t, srv.URL+"/api/market/top-pairs")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pairs := decode[[]map[string]any](t, resp)
	require.Len(t, pairs, 2)
	assert.Equal(t, "BTC", pairs[0]["symbol"])
	assert.Len(t, pairs[0]["klines"], 30)

	resp = get(t, srv.URL+"/api/market/grid-opportunities")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	opps := decode[[]map[string]any](t, resp)
	require.Len(t, opps, 2)
	assert.Equal(t, "ETH", opps[0]["symbol"])

	resp = get(t, srv.URL+"/api/signals?limit=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	signals := decode[[]map[string]any](t, resp)
	require.Len(t, signals, 1)
	assert.Contains(t, []any{"BUY", "SELL", "NEUTRAL"}, signals[0]["signal"])

	resp = get(t, srv.URL+"/api/market/top-pairs?limit=abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = get(t, srv.URL+"/api/signals/trends?symbols=eth,%20btc")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]types.TrendResult](t, resp), 2)
}

func TestUpstreamRateLimit(t *testing.T) {
	src := defaultSource()
	src.err = engerrors.NewRateLimitError("stub", "Tickers", errors.New("429"))
	srv := newTestServer(t, src)

	resp := get(t, srv.URL+"/api/market/top-pairs")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestOperationalEndpoints(t *testing.T) {
	srv := newTestServer(t, defaultSource())

	resp := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/grid/calculate", nil)
	require.NoError(t, err)
	opts, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer opts.Body.Close()
	assert.Equal(t, http.StatusNoContent, opts.StatusCode)

	resp = get(t, srv.URL+"/api/grid/calculate")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{screener.ErrPairNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", context.Canceled), http.StatusServiceUnavailable},
		{engerrors.NewInvalidGridCount("grid", "ComputeGrid", 1), http.StatusBadRequest},
		{engerrors.NewEmptyBook("orderbook", "Analyze", "bids"), http.StatusUnprocessableEntity},
		{engerrors.NewExchangeError("binance", "Klines", errors.New("bad symbol")), http.StatusBadGateway},
		{engerrors.CategorizeError(errors.New("i/o timeout"), "binance", "Depth"), http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}
