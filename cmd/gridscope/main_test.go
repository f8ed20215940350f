package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/gridscope/internal/exchange"
	"github.com/ducminhle1904/gridscope/pkg/config"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

type stubSource struct {
	tickers []types.InstrumentSnapshot
	klines  []types.OHLCV
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Tickers(ctx context.Context) ([]types.InstrumentSnapshot, error) {
	return s.tickers, nil
}

func (s *stubSource) Klines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error) {
	return s.klines, nil
}

func (s *stubSource) Depth(ctx context.Context, symbol string, limit int) (*types.DepthSnapshot, error) {
	return &types.DepthSnapshot{
		Symbol: symbol,
		Bids:   []types.PriceLevel{{Price: 99, Quantity: 2}, {Price: 98, Quantity: 5}},
		Asks:   []types.PriceLevel{{Price: 100, Quantity: 1}, {Price: 101, Quantity: 3}},
	}, nil
}

func wave(n int) []types.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.OHLCV, n)
	for i := range out {
		c := 100 + 5*math.Sin(float64(i)/5)
		out[i] = types.OHLCV{Timestamp: start.Add(time.Duration(i) * time.Hour), Open: c, High: c * 1.01, Low: c * 0.99, Close: c, Volume: 1000}
	}
	return out
}

// run executes the CLI against a stub exchange and returns stdout
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	src := &stubSource{
		tickers: []types.InstrumentSnapshot{{Symbol: "ETHUSDT", LastPrice: 2200, QuoteVolume24h: 5e8}},
		klines:  wave(100),
	}
	st := &appState{newSource: func(config.ExchangeConfig) (exchange.MarketDataSource, error) { return src, nil }}

	var out bytes.Buffer
	app := newApp(st)
	app.Writer = &out
	app.ErrWriter = io.Discard

	argv := append([]string{ProjectName, "--env", filepath.Join(t.TempDir(), "missing.env")}, args...)
	err := app.RunContext(context.Background(), argv)
	return out.String(), err
}

func writeCandles(t *testing.T, path string, candles []types.OHLCV) {
	t.Helper()
	var b strings.Builder
	b.WriteString("timestamp,open,high,low,close,volume\n")
	for _, c := range candles {
		fmt.Fprintf(&b, "%s,%f,%f,%f,%f,%f\n", c.Timestamp.Format("2006-01-02 15:04:05"), c.Open, c.High, c.Low, c.Close, c.Volume)
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "gridscope v"+ProjectVersion)
}

func TestGridCommand_Offline(t *testing.T) {
	out, err := run(t, "--json", "grid", "--symbol", "eth", "--price", "2000", "--volatility", "1", "--grids", "5")
	require.NoError(t, err)

	var plan types.GridPlan
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, "ETH", plan.Symbol)
	assert.Equal(t, 2000.0, plan.CurrentPrice)
	assert.Len(t, plan.Levels, 5)
	assert.InDelta(t, 2040.0, plan.UpperBound, 1e-9)
}

func TestGridCommand_Market(t *testing.T) {
	out, err := run(t, "grid", "-s", "ETH", "-n", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "GRID PLAN ETH")

	_, err = run(t, "grid", "-s", "DOGE")
	assert.Error(t, err)
}

func TestBacktestCommand_FromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "ethusdt.csv")
	writeCandles(t, file, wave(120))
	outDir := filepath.Join(dir, "results")

	out, err := run(t, "--json", "backtest", "--data", file, "--grids", "6", "--investment", "600", "--csv", "--out-dir", outDir)
	require.NoError(t, err)

	var results []types.BacktestResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "ETHUSDT", results[0].Symbol)
	assert.Equal(t, 600.0, results[0].InitialInvestment)
	assert.Len(t, results[0].GridLevels, 6)

	assert.FileExists(t, filepath.Join(outDir, "ETHUSDT_1h", "trades.csv"))
	assert.NoFileExists(t, filepath.Join(outDir, "ETHUSDT_1h", "trades.xlsx"))
}

func TestBacktestCommand_DataTree(t *testing.T) {
	root := t.TempDir()
	writeCandles(t, filepath.Join(root, "binance", "spot", "ETHUSDT", "60", "candles.csv"), wave(48))
	cfgPath := filepath.Join(root, "config.yaml")
	cfg := config.DefaultConfig()
	cfg.Backtest.DataRoot = root
	require.NoError(t, config.Save(cfg, cfgPath))

	out, err := run(t, "--config", cfgPath, "backtest", "-s", "eth", "--offline")
	require.NoError(t, err)
	assert.Contains(t, out, "BACKTEST ETHUSDT")

	_, err = run(t, "--config", cfgPath, "backtest", "-s", "xrp", "--offline")
	assert.ErrorContains(t, err, "no local candle file")

	_, err = run(t, "backtest")
	assert.Error(t, err)
}

func TestBacktestCommand_IsolatesFailedSymbols(t *testing.T) {
	root := t.TempDir()
	writeCandles(t, filepath.Join(root, "binance", "spot", "ETHUSDT", "60", "candles.csv"), wave(48))
	cfgPath := filepath.Join(root, "config.yaml")
	cfg := config.DefaultConfig()
	cfg.Backtest.DataRoot = root
	require.NoError(t, config.Save(cfg, cfgPath))

	out, err := run(t, "--config", cfgPath, "--json", "backtest", "-s", "xrp", "-s", "eth", "--offline")
	require.NoError(t, err)
	var results []types.BacktestResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "ETHUSDT", results[0].Symbol)

	good := filepath.Join(root, "solusdt.csv")
	writeCandles(t, good, wave(60))
	out, err = run(t, "--json", "backtest", "-d", filepath.Join(root, "missing.csv"), "-d", good)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "SOLUSDT", results[0].Symbol)
}

func TestBacktestCommand_Window(t *testing.T) {
	file := filepath.Join(t.TempDir(), "ethusdt.csv")
	candles := wave(120)
	writeCandles(t, file, candles)

	out, err := run(t, "--json", "backtest", "-d", file, "--period", "24h")
	require.NoError(t, err)
	var results []types.BacktestResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	require.NotEmpty(t, results[0].Trades)
	for _, trade := range results[0].Trades {
		assert.False(t, trade.Timestamp.Before(candles[95].Timestamp))
	}

	out, err = run(t, "--json", "backtest", "-d", file, "--from", "2024-01-02", "--to", "2024-01-02")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	for _, trade := range results[0].Trades {
		assert.Equal(t, 2, trade.Timestamp.Day())
	}

	_, err = run(t, "backtest", "-d", file, "--from", "2024-03-01")
	assert.ErrorContains(t, err, "empty")

	_, err = run(t, "backtest", "-d", file, "--from", "2024-01-03", "--to", "2024-01-02")
	assert.ErrorContains(t, err, "--to is before --from")

	_, err = run(t, "backtest", "-d", file, "--period", "soon")
	assert.ErrorContains(t, err, "invalid --period")
}

func TestBacktestCommand_JSONKlines(t *testing.T) {
	dir := t.TempDir()
	var rows []string
	for _, c := range wave(60) {
		rows = append(rows, fmt.Sprintf(`[%d,"%f","%f","%f","%f","%f",0,"0",0,"0","0","0"]`,
			c.Timestamp.UnixMilli(), c.Open, c.High, c.Low, c.Close, c.Volume))
	}
	ordered := filepath.Join(dir, "adausdt.json")
	require.NoError(t, os.WriteFile(ordered, []byte("["+strings.Join(rows, ",")+"]"), 0644))

	out, err := run(t, "--json", "backtest", "-d", ordered)
	require.NoError(t, err)
	var results []types.BacktestResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "ADAUSDT", results[0].Symbol)

	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	reversed := filepath.Join(dir, "dotusdt.json")
	require.NoError(t, os.WriteFile(reversed, []byte("["+strings.Join(rows, ",")+"]"), 0644))
	_, err = run(t, "backtest", "-d", reversed)
	assert.ErrorContains(t, err, "chronological order")
}

func TestDownloadThenBacktest(t *testing.T) {
	root := t.TempDir()
	cfgPath := filepath.Join(root, "config.json")
	cfg := config.DefaultConfig()
	cfg.Backtest.DataRoot = root
	require.NoError(t, config.Save(cfg, cfgPath))

	_, err := run(t, "--config", cfgPath, "download", "-s", "eth", "-i", "1h", "-i", "4h")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "binance", "spot", "ETHUSDT", "60", "candles.csv"))
	assert.FileExists(t, filepath.Join(root, "binance", "spot", "ETHUSDT", "240", "candles.csv"))

	out, err := run(t, "--config", cfgPath, "--json", "backtest", "-s", "ETH", "-i", "4h", "--offline")
	require.NoError(t, err)
	var results []types.BacktestResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "ETHUSDT", results[0].Symbol)
}

func TestMarketCommands(t *testing.T) {
	out, err := run(t, "--json", "scan")
	require.NoError(t, err)
	var pairs []types.PairSummary
	require.NoError(t, json.Unmarshal([]byte(out), &pairs))
	require.Len(t, pairs, 1)
	assert.Equal(t, "ETH", pairs[0].Symbol)

	out, err = run(t, "--json", "orderbook", "-s", "btc")
	require.NoError(t, err)
	var book map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &book))
	assert.Equal(t, "BTCUSDT", book["symbol"])
	assert.Equal(t, 1.0, book["spread"])

	out, err = run(t, "signals")
	require.NoError(t, err)
	assert.Contains(t, out, "ETHUSDT")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gridscope.yaml")
	_, err := run(t, "--quote", "usdc", "config", "init", path)
	require.NoError(t, err)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "usdc", cfg.Market.QuoteAsset)
}

func TestSymbolFromPath(t *testing.T) {
	assert.Equal(t, "BTCUSDT", symbolFromPath(filepath.Join("data", "bybit", "spot", "BTCUSDT", "60", "candles.csv")))
	assert.Equal(t, "SOLUSDT", symbolFromPath("solusdt.csv"))
	assert.Equal(t, "CANDLES", symbolFromPath("candles.csv"))
}
