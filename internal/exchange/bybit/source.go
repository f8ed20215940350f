package bybit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ducminhle1904/gridscope/pkg/data"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

const (
	category      = "spot"
	maxKlineLimit = 1000
	maxDepthLimit = 200
)

// Source serves spot market data from the Bybit v5 API
type Source struct {
	api marketAPI
}

// NewSource creates a Bybit market data source
func NewSource(cfg Config) *Source {
	return &Source{api: NewClient(cfg)}
}

// Name returns the venue name
func (s *Source) Name() string { return "bybit" }

// Tickers returns the 24h statistics of every spot instrument
func (s *Source) Tickers(ctx context.Context) ([]types.InstrumentSnapshot, error) {
	resp, err := s.api.tickers(ctx, map[string]interface{}{"category": category})
	if err != nil {
		return nil, classify("Tickers", err)
	}

	var result tickerResult
	if err := decodeResult(resp, &result); err != nil {
		return nil, classify("Tickers", err)
	}

	out := make([]types.InstrumentSnapshot, 0, len(result.List))
	for _, t := range result.List {
		last, err := data.ParseDecimal("lastPrice", t.LastPrice)
		if err != nil {
			return nil, fmt.Errorf("ticker %s: %w", t.Symbol, err)
		}
		change, err := optionalDecimal("price24hPcnt", t.Price24hPcnt)
		if err != nil {
			return nil, fmt.Errorf("ticker %s: %w", t.Symbol, err)
		}
		turnover, err := optionalDecimal("turnover24h", t.Turnover24h)
		if err != nil {
			return nil, fmt.Errorf("ticker %s: %w", t.Symbol, err)
		}
		out = append(out, types.InstrumentSnapshot{
			Symbol:            t.Symbol,
			LastPrice:         last,
			PriceChangePct24h: change * 100,
			QuoteVolume24h:    turnover,
		})
	}
	return out, nil
}

// Klines returns candles in ascending open time. Bybit serves them newest first.
func (s *Source) Klines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error) {
	if limit <= 0 || limit > maxKlineLimit {
		limit = maxKlineLimit
	}
	params := map[string]interface{}{
		"category": category,
		"symbol":   strings.ToUpper(symbol),
		"interval": Interval(interval),
		"limit":    limit,
	}

	resp, err := s.api.kline(ctx, params)
	if err != nil {
		return nil, classify("Klines", err)
	}

	var result klineResult
	if err := decodeResult(resp, &result); err != nil {
		return nil, classify("Klines", err)
	}

	candles, err := data.ParseKlineStrings(result.List)
	if err != nil {
		return nil, err
	}
	return data.Normalize(candles), nil
}

// Depth returns an order book snapshot
func (s *Source) Depth(ctx context.Context, symbol string, limit int) (*types.DepthSnapshot, error) {
	if limit <= 0 || limit > maxDepthLimit {
		limit = maxDepthLimit
	}
	params := map[string]interface{}{
		"category": category,
		"symbol":   strings.ToUpper(symbol),
		"limit":    limit,
	}

	resp, err := s.api.orderBook(ctx, params)
	if err != nil {
		return nil, classify("Depth", err)
	}

	var result orderBookResult
	if err := decodeResult(resp, &result); err != nil {
		return nil, classify("Depth", err)
	}

	bids, err := data.ParseDepthLevels(result.Bids)
	if err != nil {
		return nil, err
	}
	asks, err := data.ParseDepthLevels(result.Asks)
	if err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	if result.Timestamp > 0 {
		ts = time.UnixMilli(result.Timestamp).UTC()
	}
	return &types.DepthSnapshot{
		Symbol:    strings.ToUpper(symbol),
		Bids:      bids,
		Asks:      asks,
		Timestamp: ts,
	}, nil
}

// Interval converts "1h", "4h", "1d" style intervals to Bybit codes
func Interval(interval string) string {
	switch minutes := data.IntervalToMinutes(interval); minutes {
	case "1440":
		return "D"
	case "10080":
		return "W"
	default:
		return minutes
	}
}

func optionalDecimal(field, value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	return data.ParseDecimal(field, value)
}
