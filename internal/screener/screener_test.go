package screener

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/internal/signals"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

type fakeSource struct {
	mu      sync.Mutex
	tickers []types.InstrumentSnapshot
	klines  map[string][]types.OHLCV
	fail    map[string]error
	calls   map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		klines: make(map[string][]types.OHLCV),
		fail:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Tickers(ctx context.Context) ([]types.InstrumentSnapshot, error) {
	return f.tickers, nil
}

func (f *fakeSource) Klines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error) {
	f.mu.Lock()
	f.calls[symbol]++
	f.mu.Unlock()
	if err := f.fail[symbol]; err != nil {
		return nil, err
	}
	candles := f.klines[symbol]
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

func (f *fakeSource) Depth(ctx context.Context, symbol string, limit int) (*types.DepthSnapshot, error) {
	return nil, errors.New("not used")
}

// wave builds n candles oscillating around 100 with the given half spread in percent
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

// box builds n identical candles between low and high
func box(n int, low, high float64) []types.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.OHLCV, n)
	for i := range out {
		out[i] = types.OHLCV{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      low, High: high, Low: low, Close: high, Volume: 10,
		}
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Concurrency = 2
	return cfg
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", NormalizeSymbol("btc", "USDT"))
	assert.Equal(t, "BTCUSDT", NormalizeSymbol(" BTCUSDT ", "usdt"))
	assert.Equal(t, "ETH", NormalizeSymbol("eth", ""))
}

func TestTopByVolume(t *testing.T) {
	tickers := []types.InstrumentSnapshot{
		{Symbol: "ETHUSDT", QuoteVolume24h: 200},
		{Symbol: "BTCEUR", QuoteVolume24h: 1000},
		{Symbol: "BTCUSDT", QuoteVolume24h: 300},
		{Symbol: "USDT", QuoteVolume24h: 5000},
		{Symbol: "XRPUSDT", QuoteVolume24h: 100},
	}

	top := TopByVolume(tickers, "usdt", 2)
	require.Len(t, top, 2)
	assert.Equal(t, "BTCUSDT", top[0].Symbol)
	assert.Equal(t, "ETHUSDT", top[1].Symbol)

	assert.Len(t, TopByVolume(tickers, "USDT", 0), 3)
}

func TestTopPairs_IsolatesFailures(t *testing.T) {
	src := newFakeSource()
	src.tickers = []types.InstrumentSnapshot{
		{Symbol: "XRPUSDT", LastPrice: 0.5, QuoteVolume24h: 100},
		{Symbol: "BTCUSDT", LastPrice: 42000, PriceChangePct24h: 1.5, QuoteVolume24h: 300},
		{Symbol: "ETHUSDT", LastPrice: 2200, QuoteVolume24h: 200},
		{Symbol: "BTCEUR", QuoteVolume24h: 900},
	}
	src.klines["BTCUSDT"] = wave(100, 0.1)
	src.klines["ETHUSDT"] = wave(100, 1)
	src.fail["XRPUSDT"] = errors.New("invalid symbol")

	pairs, err := New(src, testConfig(), nil).TopPairs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	assert.Equal(t, "BTC", pairs[0].Symbol)
	assert.Equal(t, "BTCUSDT", pairs[0].Pair)
	assert.Equal(t, 42000.0, pairs[0].Price)
	assert.Equal(t, 1.5, pairs[0].Change24hPct)
	assert.Equal(t, signals.ScorePoor, pairs[0].GridScore)
	assert.Len(t, pairs[0].Klines, 30)

	assert.Equal(t, "ETH", pairs[1].Symbol)
	assert.Equal(t, signals.ScoreIdeal, pairs[1].GridScore)
	assert.InDelta(t, 2.02, pairs[1].VolatilityPct, 0.01)
	assert.Equal(t, pairs[1].Klines[29].Timestamp, pairs[1].Timestamp)

	assert.Zero(t, src.calls["BTCEUR"])
}

func TestTopPairs_ConfigurationErrorAborts(t *testing.T) {
	src := newFakeSource()
	src.tickers = []types.InstrumentSnapshot{
		{Symbol: "BTCUSDT", LastPrice: 42000, QuoteVolume24h: 300},
		{Symbol: "ETHUSDT", LastPrice: 2200, QuoteVolume24h: 200},
	}
	src.klines["BTCUSDT"] = wave(100, 1)
	src.fail["ETHUSDT"] = engerrors.NewConfigurationError("fake", "Klines", "api key rejected")

	_, err := New(src, testConfig(), nil).TopPairs(context.Background(), 0)
	assert.True(t, errors.Is(err, engerrors.ErrConfiguration))
}

func TestGridOpportunities_RanksByScoreThenVolume(t *testing.T) {
	src := newFakeSource()
	src.tickers = []types.InstrumentSnapshot{
		{Symbol: "BTCUSDT", QuoteVolume24h: 300},
		{Symbol: "ETHUSDT", QuoteVolume24h: 200},
		{Symbol: "SOLUSDT", QuoteVolume24h: 250},
	}
	src.klines["BTCUSDT"] = wave(100, 0.1)
	src.klines["ETHUSDT"] = wave(100, 1)
	src.klines["SOLUSDT"] = wave(100, 1)

	cfg := testConfig()
	cfg.OpportunityLimit = 2
	pairs, err := New(src, cfg, nil).GridOpportunities(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "SOL", pairs[0].Symbol)
	assert.Equal(t, "ETH", pairs[1].Symbol)
}

func TestFindPair(t *testing.T) {
	src := newFakeSource()
	src.tickers = []types.InstrumentSnapshot{{Symbol: "ETHUSDT", LastPrice: 2200, QuoteVolume24h: 200}}
	src.klines["ETHUSDT"] = wave(100, 1)
	s := New(src, testConfig(), nil)

	pair, err := s.FindPair(context.Background(), "eth")
	require.NoError(t, err)
	assert.Equal(t, 2200.0, pair.Price)

	_, err = s.FindPair(context.Background(), "DOGE")
	assert.ErrorIs(t, err, ErrPairNotFound)
}

func TestSignals_RankedWithMACD(t *testing.T) {
	src := newFakeSource()
	src.tickers = []types.InstrumentSnapshot{
		{Symbol: "BTCUSDT", QuoteVolume24h: 300},
		{Symbol: "ETHUSDT", QuoteVolume24h: 200},
	}
	src.klines["BTCUSDT"] = wave(100, 0.1)
	src.klines["ETHUSDT"] = wave(100, 1)

	results, err := New(src, testConfig(), nil).Signals(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "ETHUSDT", results[0].Symbol)
	assert.NotZero(t, results[0].MACD)
	assert.NotZero(t, results[0].RSI)
}

func TestGridPairs(t *testing.T) {
	src := newFakeSource()
	src.tickers = []types.InstrumentSnapshot{
		{Symbol: "AAAUSDT", LastPrice: 101, QuoteVolume24h: 5_000_000},
		{Symbol: "BBBUSDT", LastPrice: 102, QuoteVolume24h: 4_000_000},
		{Symbol: "SHORTUSDT", QuoteVolume24h: 3_000_000},
		{Symbol: "THINUSDT", QuoteVolume24h: 10},
		{Symbol: "WILDUSDT", QuoteVolume24h: 2_000_000},
	}
	src.klines["AAAUSDT"] = box(24, 100, 102)
	src.klines["BBBUSDT"] = box(24, 100, 104)
	src.klines["SHORTUSDT"] = box(10, 100, 102)
	src.klines["THINUSDT"] = box(24, 100, 102)
	src.klines["WILDUSDT"] = box(24, 100, 120)

	pairs, err := New(src, testConfig(), nil).GridPairs(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	assert.Equal(t, "BBBUSDT", pairs[0].Symbol)
	assert.Equal(t, 4.0, pairs[0].AvgHourlyVolatility)
	assert.Equal(t, 4.0, pairs[0].RangeWidthPct)
	assert.Equal(t, 8, pairs[0].SuggestedGrids)
	assert.Equal(t, 3.2, pairs[0].ProfitPotentialPct)

	assert.Equal(t, "AAAUSDT", pairs[1].Symbol)
	assert.Equal(t, 100.0, pairs[1].RangeLow)
	assert.Equal(t, 102.0, pairs[1].RangeHigh)
	assert.Equal(t, 5, pairs[1].SuggestedGrids, "clamped to the minimum")
	assert.Equal(t, 1.6, pairs[1].ProfitPotentialPct)
}

func TestTrends(t *testing.T) {
	rising := make([]types.OHLCV, 24)
	flat := make([]types.OHLCV, 24)
	for i := range rising {
		rising[i] = types.OHLCV{Close: 100 + float64(i), Low: 99, High: 130, Volume: 10}
		flat[i] = types.OHLCV{Close: 100, Low: 99, High: 101, Volume: 10}
	}

	src := newFakeSource()
	src.klines["UPUSDT"] = rising
	src.klines["FLATUSDT"] = flat
	src.klines["TINYUSDT"] = flat[:5]

	trends, err := New(src, testConfig(), nil).Trends(context.Background(), []string{"flat", "up", "tiny"})
	require.NoError(t, err)
	require.Len(t, trends, 2)

	assert.Equal(t, "UPUSDT", trends[0].Symbol)
	assert.Equal(t, types.SignalBuy, trends[0].Signal)
	assert.Equal(t, 0.55, trends[0].Confidence)
	assert.Equal(t, "FLATUSDT", trends[1].Symbol)
	assert.Equal(t, types.SignalNeutral, trends[1].Signal)
	assert.Equal(t, 0.5, trends[1].Confidence)
}

func TestTopPairs_ContextCancelled(t *testing.T) {
	src := newFakeSource()
	src.tickers = []types.InstrumentSnapshot{{Symbol: "BTCUSDT", QuoteVolume24h: 1}}
	src.klines["BTCUSDT"] = wave(100, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(src, testConfig(), nil).TopPairs(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
