package config

import (
	"fmt"
	"strings"

	"github.com/xhit/go-str2duration/v2"
	"go.uber.org/zap/zapcore"
)

// Validation bounds
const (
	MinGridCount  = 2
	MaxGridCount  = 500
	MaxRSI        = 100.0
	MaxKlineLimit = 1000
)

// Validate checks every section and returns the first problem found
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateExchange,
		c.validateMarket,
		c.validateIndicators,
		c.validateGrid,
		c.validateBacktest,
		c.validateScoring,
		c.validateScreener,
		c.validateOrderBook,
		c.validateLogging,
		c.validateServer,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateExchange() error {
	switch strings.ToLower(c.Exchange.Name) {
	case "binance", "bybit":
		return nil
	default:
		return fmt.Errorf("unsupported exchange: %q (use binance or bybit)", c.Exchange.Name)
	}
}

func (c *Config) validateMarket() error {
	m := c.Market
	if m.QuoteAsset == "" {
		return fmt.Errorf("quote asset is required")
	}
	if _, err := str2duration.ParseDuration(m.Interval); err != nil {
		return fmt.Errorf("invalid market interval %q: %w", m.Interval, err)
	}
	if m.KlineLimit <= 0 || m.KlineLimit > MaxKlineLimit {
		return fmt.Errorf("kline limit must be between 1 and %d, got: %d", MaxKlineLimit, m.KlineLimit)
	}
	if m.TopN <= 0 {
		return fmt.Errorf("top_n must be positive, got: %d", m.TopN)
	}
	if m.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative, got: %d", m.MaxRetries)
	}
	if m.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got: %d", m.Concurrency)
	}
	for name, value := range map[string]string{
		"poll_interval": m.PollInterval,
		"cache_ttl":     m.CacheTTL,
		"backoff_min":   m.BackoffMin,
		"backoff_max":   m.BackoffMax,
	} {
		if err := positiveDuration(name, value); err != nil {
			return err
		}
	}
	if lo, hi := c.BackoffBounds(); lo > hi {
		return fmt.Errorf("backoff_min (%s) must not exceed backoff_max (%s)", lo, hi)
	}
	return nil
}

func (c *Config) validateIndicators() error {
	ind := c.Indicators
	if ind.RSIPeriod <= 0 {
		return fmt.Errorf("RSI period must be positive, got: %d", ind.RSIPeriod)
	}
	if ind.MACDFast <= 0 || ind.MACDSlow <= 0 || ind.MACDSignal <= 0 {
		return fmt.Errorf("MACD periods must be positive, got: fast=%d, slow=%d, signal=%d",
			ind.MACDFast, ind.MACDSlow, ind.MACDSignal)
	}
	if ind.MACDFast >= ind.MACDSlow {
		return fmt.Errorf("MACD fast period (%d) must be less than slow period (%d)", ind.MACDFast, ind.MACDSlow)
	}
	if ind.BollingerPeriod <= 0 {
		return fmt.Errorf("Bollinger Bands period must be positive, got: %d", ind.BollingerPeriod)
	}
	if ind.BollingerStdDev <= 0 {
		return fmt.Errorf("Bollinger Bands standard deviation must be positive, got: %.2f", ind.BollingerStdDev)
	}
	return nil
}

func (c *Config) validateGrid() error {
	if c.Grid.DefaultCount < MinGridCount || c.Grid.DefaultCount > MaxGridCount {
		return fmt.Errorf("grid count must be between %d and %d, got: %d", MinGridCount, MaxGridCount, c.Grid.DefaultCount)
	}
	if c.Grid.RangeMultiplier <= 0 {
		return fmt.Errorf("range multiplier must be positive, got: %.2f", c.Grid.RangeMultiplier)
	}
	return nil
}

func (c *Config) validateBacktest() error {
	b := c.Backtest
	if _, err := str2duration.ParseDuration(b.Interval); err != nil {
		return fmt.Errorf("invalid backtest interval %q: %w", b.Interval, err)
	}
	if b.Limit <= 0 || b.Limit > MaxKlineLimit {
		return fmt.Errorf("backtest limit must be between 1 and %d, got: %d", MaxKlineLimit, b.Limit)
	}
	if b.Investment <= 0 {
		return fmt.Errorf("investment must be positive, got: %.2f", b.Investment)
	}
	if b.GridCount < MinGridCount || b.GridCount > MaxGridCount {
		return fmt.Errorf("backtest grid count must be between %d and %d, got: %d", MinGridCount, MaxGridCount, b.GridCount)
	}
	if b.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got: %d", b.Workers)
	}
	return nil
}

func (c *Config) validateScoring() error {
	s := c.Scoring
	if s.OversoldRSI <= 0 || s.OversoldRSI >= MaxRSI {
		return fmt.Errorf("oversold RSI must be between 0 and 100, got: %.1f", s.OversoldRSI)
	}
	if s.OverboughtRSI <= 0 || s.OverboughtRSI >= MaxRSI {
		return fmt.Errorf("overbought RSI must be between 0 and 100, got: %.1f", s.OverboughtRSI)
	}
	if s.OversoldRSI >= s.OverboughtRSI {
		return fmt.Errorf("oversold RSI (%.1f) must be less than overbought RSI (%.1f)", s.OversoldRSI, s.OverboughtRSI)
	}
	if s.VolatilityWindow < 0 {
		return fmt.Errorf("volatility window must be non-negative, got: %d", s.VolatilityWindow)
	}
	return nil
}

func (c *Config) validateScreener() error {
	s := c.Screener
	if s.MinVolatility < 0 || s.MaxVolatility < s.MinVolatility {
		return fmt.Errorf("volatility band must satisfy 0 <= min <= max, got: [%.2f, %.2f]", s.MinVolatility, s.MaxVolatility)
	}
	if s.MinVolume < 0 {
		return fmt.Errorf("min volume must be non-negative, got: %.2f", s.MinVolume)
	}
	if s.Limit <= 0 || s.OpportunityLimit <= 0 {
		return fmt.Errorf("screener limits must be positive, got: limit=%d, opportunity_limit=%d", s.Limit, s.OpportunityLimit)
	}
	return nil
}

func (c *Config) validateOrderBook() error {
	o := c.OrderBook
	if o.DepthLimit <= 0 || o.DepthLimit > 5000 {
		return fmt.Errorf("depth limit must be between 1 and 5000, got: %d", o.DepthLimit)
	}
	if o.TopLevels <= 0 {
		return fmt.Errorf("top levels must be positive, got: %d", o.TopLevels)
	}
	if o.Buckets <= 0 {
		return fmt.Errorf("buckets must be positive, got: %d", o.Buckets)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Logging.Level, err)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server address is required")
	}
	if err := positiveDuration("read_timeout", c.Server.ReadTimeout); err != nil {
		return err
	}
	return positiveDuration("write_timeout", c.Server.WriteTimeout)
}

func positiveDuration(name, value string) error {
	d, err := str2duration.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got: %s", name, value)
	}
	return nil
}
