package data

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

const binanceKlines = `[
  [1499040000000, "0.01634790", "0.80000000", "0.01575800", "0.01577100", "148976.11427815",
   1499644799999, "2434.19055334", 308, "1756.87402397", "28.46694368", "17928899.62484339"],
  [1499054400000, "0.01577100", "0.01700000", "0.01500000", "0.01650000", "1000.5",
   1499058000000, "16.5", 12, "500", "8.2", "0"]
]`

func TestParseKlineJSON(t *testing.T) {
	candles, err := ParseKlineJSON([]byte(binanceKlines))
	require.NoError(t, err)
	require.Len(t, candles, 2)

	c := candles[0]
	assert.Equal(t, time.UnixMilli(1499040000000).UTC(), c.Timestamp)
	assert.InDelta(t, 0.0163479, c.Open, 1e-12)
	assert.InDelta(t, 0.8, c.High, 1e-12)
	assert.InDelta(t, 0.015758, c.Low, 1e-12)
	assert.InDelta(t, 0.015771, c.Close, 1e-12)
	assert.InDelta(t, 148976.11427815, c.Volume, 1e-6)
}

func TestParseKlineRows_Errors(t *testing.T) {
	_, err := ParseKlineRows([][]interface{}{{"1", "2", "3", "4", "5"}})
	assert.True(t, errors.Is(err, engerrors.ErrMissingColumns))

	_, err = ParseKlineRows([][]interface{}{{"1499040000000", "abc", "1", "1", "1", "1"}})
	assert.True(t, errors.Is(err, engerrors.ErrMissingColumns))
	assert.Contains(t, err.Error(), "open")

	_, err = ParseKlineRows([][]interface{}{{"1499040000000", "1", "", "1", "1", "1"}})
	assert.True(t, errors.Is(err, engerrors.ErrMissingColumns))

	_, err = ParseKlineJSON([]byte(`{"not":"rows"}`))
	assert.True(t, errors.Is(err, engerrors.ErrMissingColumns))
}

func TestParseKlineStrings(t *testing.T) {
	candles, err := ParseKlineStrings([][]string{
		{"1700000000000", "100", "110", "90", "105", "12.5", "1260"},
	})
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 105.0, candles[0].Close)
}

func TestParseDepthLevels(t *testing.T) {
	levels, err := ParseDepthLevels([][]string{{"100.5", "2"}, {"100.4", "0.25"}})
	require.NoError(t, err)
	assert.Equal(t, []types.PriceLevel{{Price: 100.5, Quantity: 2}, {Price: 100.4, Quantity: 0.25}}, levels)

	_, err = ParseDepthLevels([][]string{{"100"}})
	assert.True(t, errors.Is(err, engerrors.ErrMissingColumns))
}

func TestCSVProvider_Read(t *testing.T) {
	csvData := strings.Join([]string{
		"timestamp,open,high,low,close,volume",
		"2024-01-01 01:00:00,101,103,100,102,10",
		"2024-01-01 00:00:00,100,102,99,101,12",
		"2024-01-01 02:00:00,abc,103,100,102,10",
		"2024-01-01 03:00:00,101,103",
		"2024-01-01 01:00:00,1,1,1,1,1",
		"2024-01-01 04:00:00,0,103,100,102,10",
	}, "\n")

	candles, err := NewCSVProvider(nil).Read(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 100.0, candles[0].Open)
	assert.Equal(t, 101.0, candles[1].Open)
	assert.NoError(t, ValidateTimeSequence(candles))
}

func TestCSVProvider_LoadKlineDump(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "candles.csv")
	content := "1700000000000,100,110,90,105,12.5,1700003599999,1260,7,1,1,0\n" +
		"1700003600000,105,112,101,111,8,1700007199999,900,5,1,1,0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	provider := NewCachedProvider(NewCSVProviderWithFormat(KlineCSVFormat, nil), 0, nil)
	candles, err := provider.LoadData(path)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.NoError(t, provider.ValidateData(candles))
	assert.Equal(t, 1, provider.GetCacheSize())

	bad := append([]types.OHLCV(nil), candles...)
	bad[1].Low = 0
	assert.ErrorIs(t, provider.ValidateData(bad), engerrors.ErrDivisionUndefined)
	bad[1].Low, bad[1].High = 120, 110
	assert.ErrorIs(t, provider.ValidateData(bad), engerrors.ErrInvalidInput)

	candles[0].Close = -1
	again, err := provider.LoadData(path)
	require.NoError(t, err)
	assert.Equal(t, 105.0, again[0].Close, "cache hands out copies")
}

func TestValidateTimeSequence(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dup := []types.OHLCV{{Timestamp: t0}, {Timestamp: t0}}
	err := ValidateTimeSequence(dup)
	assert.ErrorIs(t, err, engerrors.ErrInvalidInput)
	assert.ErrorContains(t, err, "duplicate timestamp at index 1")

	back := []types.OHLCV{{Timestamp: t0.Add(time.Hour)}, {Timestamp: t0}}
	err = ValidateTimeSequence(back)
	assert.ErrorIs(t, err, engerrors.ErrInvalidInput)
	assert.ErrorContains(t, err, "not in chronological order")

	assert.Len(t, Normalize(append(back, dup...)), 2)
}

func TestFilterByPeriod(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	data := make([]types.OHLCV, 48)
	for i := range data {
		data[i].Timestamp = t0.Add(time.Duration(i) * time.Hour)
	}
	assert.Len(t, FilterByPeriod(data, 24*time.Hour), 25)
	assert.Len(t, FilterByPeriod(data, 0), 48)
	assert.Len(t, FilterByDateRange(data, t0, t0.Add(2*time.Hour)), 3)
	assert.Len(t, FilterByDateRange(data, t0.Add(40*time.Hour), time.Time{}), 8)
	assert.Len(t, FilterByDateRange(data, time.Time{}, t0.Add(9*time.Hour)), 10)
}

func TestTTLCache(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewTTLCache[int](time.Minute).WithClock(func() time.Time { return now })

	cache.Set("a", 1)
	v, ok := cache.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	expiry, ok := cache.ExpiresAt("a")
	assert.True(t, ok)
	assert.Equal(t, now.Add(time.Minute), expiry)

	now = now.Add(59 * time.Second)
	_, ok = cache.Get("a")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = cache.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Purge())
	assert.Equal(t, 0, cache.Size())

	forever := NewTTLCache[string](0)
	forever.Set("k", "v")
	_, ok = forever.Get("k")
	assert.True(t, ok)
	forever.Clear()
	assert.Equal(t, 0, forever.Size())
}

func TestIntervalToMinutes(t *testing.T) {
	assert.Equal(t, "5", IntervalToMinutes("5m"))
	assert.Equal(t, "240", IntervalToMinutes("4h"))
	assert.Equal(t, "1440", IntervalToMinutes("1d"))
	assert.Equal(t, "60", IntervalToMinutes("60"))
	assert.Equal(t, "weird", IntervalToMinutes("weird"))
}

func TestFindDataFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "binance", "spot", "BTCUSDT", "60")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "candles.csv"), []byte(""), 0o644))

	assert.Equal(t, filepath.Join(dir, "candles.csv"), FindDataFile(nil, root, "binance", "btcusdt", "1h"))
	assert.Equal(t, "", FindDataFile(nil, root, "bybit", "BTCUSDT", "1h"))
}

func TestWriteCandlesCSV_RoundTrip(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	candles := []types.OHLCV{
		{Timestamp: start, Open: 100, High: 101.5, Low: 99.25, Close: 101, Volume: 12.5},
		{Timestamp: start.Add(time.Hour), Open: 101, High: 102, Low: 100, Close: 100.5, Volume: 7},
	}
	path := CandleFilePath(t.TempDir(), "Bybit", "spot", "ethusdt", "1h")
	assert.True(t, strings.HasSuffix(path, filepath.Join("bybit", "spot", "ETHUSDT", "60", "candles.csv")))

	require.NoError(t, WriteCandlesCSV(path, candles))

	loaded, err := NewCSVProvider(nil).LoadData(path)
	require.NoError(t, err)
	assert.Equal(t, candles, loaded)
}
