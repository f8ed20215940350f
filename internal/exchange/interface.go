package exchange

import (
	"context"

	"github.com/ducminhle1904/gridscope/pkg/types"
)

// MarketDataSource is the read-only market data surface the screener and poller consume.
// Implementations return errors categorized with internal/errors so callers can tell
// rate limiting apart from other failures.
type MarketDataSource interface {
	// Name identifies the venue, e.g. "binance"
	Name() string

	// Tickers returns the 24h statistics of every listed instrument
	Tickers(ctx context.Context) ([]types.InstrumentSnapshot, error)

	// Klines returns up to limit candles for symbol in ascending open time
	Klines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error)

	// Depth returns an order book snapshot with up to limit levels per side
	Depth(ctx context.Context, symbol string, limit int) (*types.DepthSnapshot, error)
}
