package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/pkg/data"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

const (
	testnetURL = "https://testnet.binance.vision"

	// rate limit codes returned in the error body
	codeTooManyRequests = -1003
	codeIPBanned        = -1015
)

// Config holds Binance connection settings
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Testnet   bool
}

// Source serves spot market data through go-binance
type Source struct {
	client *gobinance.Client
}

// NewSource creates a Binance market data source
func NewSource(cfg Config) *Source {
	client := gobinance.NewClient(cfg.APIKey, cfg.APISecret)
	switch {
	case cfg.BaseURL != "":
		client.BaseURL = cfg.BaseURL
	case cfg.Testnet:
		client.BaseURL = testnetURL
	}
	client.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	return &Source{client: client}
}

// Name returns the venue name
func (s *Source) Name() string { return "binance" }

// Tickers returns 24h statistics for every listed symbol
func (s *Source) Tickers(ctx context.Context) ([]types.InstrumentSnapshot, error) {
	stats, err := s.client.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, classify("Tickers", err)
	}

	out := make([]types.InstrumentSnapshot, 0, len(stats))
	for _, st := range stats {
		last, err := data.ParseDecimal("lastPrice", st.LastPrice)
		if err != nil {
			return nil, fmt.Errorf("ticker %s: %w", st.Symbol, err)
		}
		change, err := data.ParseDecimal("priceChangePercent", st.PriceChangePercent)
		if err != nil {
			return nil, fmt.Errorf("ticker %s: %w", st.Symbol, err)
		}
		quoteVolume, err := data.ParseDecimal("quoteVolume", st.QuoteVolume)
		if err != nil {
			return nil, fmt.Errorf("ticker %s: %w", st.Symbol, err)
		}
		out = append(out, types.InstrumentSnapshot{
			Symbol:            st.Symbol,
			LastPrice:         last,
			PriceChangePct24h: change,
			QuoteVolume24h:    quoteVolume,
			TradeCount24h:     st.Count,
		})
	}
	return out, nil
}

// Klines returns candles in ascending open time
func (s *Source) Klines(ctx context.Context, symbol, interval string, limit int) ([]types.OHLCV, error) {
	klines, err := s.client.NewKlinesService().
		Symbol(strings.ToUpper(symbol)).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, classify("Klines", err)
	}

	rows := make([][]string, len(klines))
	for i, k := range klines {
		rows[i] = []string{strconv.FormatInt(k.OpenTime, 10), k.Open, k.High, k.Low, k.Close, k.Volume}
	}
	return data.ParseKlineStrings(rows)
}

// Depth returns an order book snapshot
func (s *Source) Depth(ctx context.Context, symbol string, limit int) (*types.DepthSnapshot, error) {
	depth, err := s.client.NewDepthService().
		Symbol(strings.ToUpper(symbol)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, classify("Depth", err)
	}

	bidRows := make([][]string, len(depth.Bids))
	for i, b := range depth.Bids {
		bidRows[i] = []string{b.Price, b.Quantity}
	}
	askRows := make([][]string, len(depth.Asks))
	for i, a := range depth.Asks {
		askRows[i] = []string{a.Price, a.Quantity}
	}

	bids, err := data.ParseDepthLevels(bidRows)
	if err != nil {
		return nil, err
	}
	asks, err := data.ParseDepthLevels(askRows)
	if err != nil {
		return nil, err
	}
	return &types.DepthSnapshot{
		Symbol:    strings.ToUpper(symbol),
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Now().UTC(),
	}, nil
}

// IsRateLimitError reports whether err carries a Binance request-weight error
func IsRateLimitError(err error) bool {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == codeTooManyRequests || apiErr.Code == codeIPBanned
	}
	return false
}

func classify(operation string, err error) error {
	var apiErr *common.APIError
	if IsRateLimitError(err) {
		rateErr := engerrors.NewRateLimitError("binance", operation, err)
		// a ban lasts minutes to days, far beyond any backoff window
		if errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Message), "banned") {
			rateErr = rateErr.WithRetryable(false).WithContext("code", apiErr.Code)
		}
		return rateErr
	}
	if errors.As(err, &apiErr) {
		return engerrors.NewExchangeError("binance", operation, err).WithContext("code", apiErr.Code)
	}
	return engerrors.CategorizeError(err, "binance", operation)
}
