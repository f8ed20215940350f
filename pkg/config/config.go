package config

import (
	"time"

	"github.com/xhit/go-str2duration/v2"

	"github.com/ducminhle1904/gridscope/internal/backtest"
	"github.com/ducminhle1904/gridscope/internal/indicators"
	"github.com/ducminhle1904/gridscope/internal/orderbook"
	"github.com/ducminhle1904/gridscope/internal/signals"
)

// Config is the full gridscope configuration
type Config struct {
	Exchange   ExchangeConfig   `json:"exchange" yaml:"exchange"`
	Market     MarketConfig     `json:"market" yaml:"market"`
	Indicators IndicatorConfig  `json:"indicators" yaml:"indicators"`
	Grid       GridConfig       `json:"grid" yaml:"grid"`
	Backtest   BacktestConfig   `json:"backtest" yaml:"backtest"`
	Scoring    ScoringConfig    `json:"scoring" yaml:"scoring"`
	Screener   ScreenerConfig   `json:"screener" yaml:"screener"`
	OrderBook  OrderBookConfig  `json:"orderbook" yaml:"orderbook"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics"`
	Server     ServerConfig     `json:"server" yaml:"server"`
}

// ExchangeConfig selects the market data venue
type ExchangeConfig struct {
	Name    string      `json:"name" yaml:"name"` // "binance" or "bybit"
	Binance Credentials `json:"binance" yaml:"binance"`
	Bybit   Credentials `json:"bybit" yaml:"bybit"`
}

// Credentials for one exchange. Market data endpoints work without keys.
type Credentials struct {
	APIKey    string `json:"api_key" yaml:"api_key"`
	APISecret string `json:"api_secret" yaml:"api_secret"`
	BaseURL   string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Testnet   bool   `json:"testnet" yaml:"testnet"`
}

// MarketConfig drives the polling collaborator
type MarketConfig struct {
	QuoteAsset   string `json:"quote_asset" yaml:"quote_asset"`
	Interval     string `json:"interval" yaml:"interval"`
	KlineLimit   int    `json:"kline_limit" yaml:"kline_limit"`
	TopN         int    `json:"top_n" yaml:"top_n"`
	PollInterval string `json:"poll_interval" yaml:"poll_interval"`
	CacheTTL     string `json:"cache_ttl" yaml:"cache_ttl"`
	MaxRetries   int    `json:"max_retries" yaml:"max_retries"`
	BackoffMin   string `json:"backoff_min" yaml:"backoff_min"`
	BackoffMax   string `json:"backoff_max" yaml:"backoff_max"`
	Concurrency  int    `json:"concurrency" yaml:"concurrency"`
}

// IndicatorConfig holds indicator windows
type IndicatorConfig struct {
	RSIPeriod       int     `json:"rsi_period" yaml:"rsi_period"`
	MACDFast        int     `json:"macd_fast" yaml:"macd_fast"`
	MACDSlow        int     `json:"macd_slow" yaml:"macd_slow"`
	MACDSignal      int     `json:"macd_signal" yaml:"macd_signal"`
	BollingerPeriod int     `json:"bollinger_period" yaml:"bollinger_period"`
	BollingerStdDev float64 `json:"bollinger_std_dev" yaml:"bollinger_std_dev"`
}

// GridConfig holds grid layout defaults
type GridConfig struct {
	DefaultCount    int     `json:"default_count" yaml:"default_count"`
	RangeMultiplier float64 `json:"range_multiplier" yaml:"range_multiplier"`
}

// BacktestConfig holds simulator defaults
type BacktestConfig struct {
	Interval             string  `json:"interval" yaml:"interval"`
	Limit                int     `json:"limit" yaml:"limit"`
	Investment           float64 `json:"investment" yaml:"investment"`
	GridCount            int     `json:"grid_count" yaml:"grid_count"`
	SingleActionPerLevel bool    `json:"single_action_per_level" yaml:"single_action_per_level"`
	DataRoot             string  `json:"data_root" yaml:"data_root"`
	Workers              int     `json:"workers" yaml:"workers"`
}

// ScoringConfig holds signal thresholds
type ScoringConfig struct {
	OversoldRSI      float64 `json:"oversold_rsi" yaml:"oversold_rsi"`
	OverboughtRSI    float64 `json:"overbought_rsi" yaml:"overbought_rsi"`
	VolatilityWindow int     `json:"volatility_window" yaml:"volatility_window"`
}

// ScreenerConfig tunes the grid pair screener
type ScreenerConfig struct {
	MinVolatility    float64 `json:"min_volatility" yaml:"min_volatility"`
	MaxVolatility    float64 `json:"max_volatility" yaml:"max_volatility"`
	MinVolume        float64 `json:"min_volume" yaml:"min_volume"`
	Limit            int     `json:"limit" yaml:"limit"`
	OpportunityLimit int     `json:"opportunity_limit" yaml:"opportunity_limit"`
}

// OrderBookConfig tunes depth analysis
type OrderBookConfig struct {
	DepthLimit int `json:"depth_limit" yaml:"depth_limit"`
	TopLevels  int `json:"top_levels" yaml:"top_levels"`
	Buckets    int `json:"buckets" yaml:"buckets"`
}

// LoggingConfig configures zap
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
}

// MetricsConfig toggles the prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr         string `json:"addr" yaml:"addr"`
	ReadTimeout  string `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout string `json:"write_timeout" yaml:"write_timeout"`
}

// Common configuration constants
const (
	DefaultExchange   = "binance"
	DefaultQuoteAsset = "USDT"
	DefaultDataRoot   = "data"
	DefaultAddr       = ":8000"
)

// DefaultConfig returns the configuration used when no file overrides it
func DefaultConfig() *Config {
	return &Config{
		Exchange: ExchangeConfig{Name: DefaultExchange},
		Market: MarketConfig{
			QuoteAsset:   DefaultQuoteAsset,
			Interval:     "4h",
			KlineLimit:   100,
			TopN:         20,
			PollInterval: "60s",
			CacheTTL:     "60s",
			MaxRetries:   5,
			BackoffMin:   "1s",
			BackoffMax:   "30s",
			Concurrency:  8,
		},
		Indicators: IndicatorConfig{
			RSIPeriod:       14,
			MACDFast:        12,
			MACDSlow:        26,
			MACDSignal:      9,
			BollingerPeriod: 20,
			BollingerStdDev: 2,
		},
		Grid: GridConfig{
			DefaultCount:    10,
			RangeMultiplier: 2,
		},
		Backtest: BacktestConfig{
			Interval:   "1h",
			Limit:      500,
			Investment: 1000,
			GridCount:  10,
			DataRoot:   DefaultDataRoot,
			Workers:    4,
		},
		Scoring: ScoringConfig{
			OversoldRSI:   30,
			OverboughtRSI: 70,
		},
		Screener: ScreenerConfig{
			MinVolatility:    0.5,
			MaxVolatility:    5,
			MinVolume:        1_000_000,
			Limit:            10,
			OpportunityLimit: 10,
		},
		OrderBook: OrderBookConfig{
			DepthLimit: 500,
			TopLevels:  5,
			Buckets:    20,
		},
		Logging: LoggingConfig{Level: "info"},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
		Server: ServerConfig{
			Addr:         DefaultAddr,
			ReadTimeout:  "15s",
			WriteTimeout: "30s",
		},
	}
}

// IndicatorSettings converts the indicator section for the annotator
func (c *Config) IndicatorSettings() indicators.Settings {
	return indicators.Settings{
		RSIPeriod:      c.Indicators.RSIPeriod,
		MACDFast:       c.Indicators.MACDFast,
		MACDSlow:       c.Indicators.MACDSlow,
		MACDSignal:     c.Indicators.MACDSignal,
		BollingerWidth: c.Indicators.BollingerPeriod,
		BollingerK:     c.Indicators.BollingerStdDev,
	}
}

// ScorerConfig converts the scoring section
func (c *Config) ScorerConfig() signals.Config {
	return signals.Config{
		OversoldRSI:      c.Scoring.OversoldRSI,
		OverboughtRSI:    c.Scoring.OverboughtRSI,
		VolatilityWindow: c.Scoring.VolatilityWindow,
	}
}

// OrderBookSettings converts the orderbook section
func (c *Config) OrderBookSettings() orderbook.Config {
	return orderbook.Config{TopLevels: c.OrderBook.TopLevels, Buckets: c.OrderBook.Buckets}
}

// BacktestOptions converts the backtest section
func (c *Config) BacktestOptions() backtest.Options {
	return backtest.Options{SingleActionPerLevel: c.Backtest.SingleActionPerLevel}
}

// PollInterval returns the parsed poll interval
func (c *Config) PollInterval() time.Duration { return mustDuration(c.Market.PollInterval) }

// CacheTTL returns the parsed cache ttl
func (c *Config) CacheTTL() time.Duration { return mustDuration(c.Market.CacheTTL) }

// BackoffBounds returns the parsed retry backoff window
func (c *Config) BackoffBounds() (min, max time.Duration) {
	return mustDuration(c.Market.BackoffMin), mustDuration(c.Market.BackoffMax)
}

// ServerTimeouts returns the parsed read and write timeouts
func (c *Config) ServerTimeouts() (read, write time.Duration) {
	return mustDuration(c.Server.ReadTimeout), mustDuration(c.Server.WriteTimeout)
}

// mustDuration parses a duration already checked by Validate; bad input yields 0
func mustDuration(s string) time.Duration {
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
