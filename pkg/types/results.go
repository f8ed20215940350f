package types

import (
	"fmt"
	"time"
)

// GridPlan is a recommended grid around the current price
type GridPlan struct {
	Symbol                   string    `json:"symbol"`
	CurrentPrice             float64   `json:"current_price"`
	UpperBound               float64   `json:"upper_bound"`
	LowerBound               float64   `json:"lower_bound"`
	GridCount                int       `json:"grid_count"`
	Levels                   []float64 `json:"grid_levels"`
	ExpectedProfitPerGridPct float64   `json:"expected_profit_per_grid"`
	TotalExpectedProfitPct   float64   `json:"total_expected_profit"`
}

// TradeSide is the direction of a simulated fill
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// Trade is one simulated fill at a grid level
type Trade struct {
	Timestamp time.Time `json:"timestamp"`
	Side      TradeSide `json:"type"`
	Price     float64   `json:"price"`
	Amount    float64   `json:"amount"` // base asset units
	Total     float64   `json:"total"`  // quote asset value
}

// TradeSummary aggregates a trade log
type TradeSummary struct {
	BuyCount       int     `json:"buy_count"`
	SellCount      int     `json:"sell_count"`
	BaseBought     float64 `json:"base_bought"`
	BaseSold       float64 `json:"base_sold"`
	QuoteSpent     float64 `json:"quote_spent"`
	QuoteReceived  float64 `json:"quote_received"`
	AvgBuyPrice    float64 `json:"avg_buy_price"`
	AvgSellPrice   float64 `json:"avg_sell_price"`
	RealizedCashPL float64 `json:"realized_cash_pl"` // quote received - quote spent
}

// BacktestResult is the outcome of replaying candles through a grid
type BacktestResult struct {
	Symbol            string       `json:"symbol"`
	InitialInvestment float64      `json:"initial_investment"`
	FinalValue        float64      `json:"final_value"`
	Profit            float64      `json:"profit"`
	ProfitPct         float64      `json:"profit_percentage"`
	Trades            []Trade      `json:"trades"`
	TradeCount        int          `json:"trade_count"`
	GridLevels        []float64    `json:"grid_levels"`
	BaseAsset         float64      `json:"base_asset"`
	QuoteAsset        float64      `json:"quote_asset"`
	LastClose         float64      `json:"last_close"`
	MaxDrawdownPct    float64      `json:"max_drawdown_pct"`
	Summary           TradeSummary `json:"summary"`
}

// Signal is the trade direction suggested by the scorer
type Signal int

const (
	SignalNeutral Signal = iota
	SignalBuy
	SignalSell
)

func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	case SignalNeutral:
		return "NEUTRAL"
	default:
		return fmt.Sprintf("Signal(%d)", int(s))
	}
}

// MarshalText encodes the signal as its upper-case name
func (s Signal) MarshalText() ([]byte, error) {
	switch s {
	case SignalBuy, SignalSell, SignalNeutral:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("invalid signal %d", int(s))
	}
}

// UnmarshalText decodes BUY, SELL or NEUTRAL
func (s *Signal) UnmarshalText(text []byte) error {
	switch string(text) {
	case "BUY":
		*s = SignalBuy
	case "SELL":
		*s = SignalSell
	case "NEUTRAL":
		*s = SignalNeutral
	default:
		return fmt.Errorf("unknown signal %q", string(text))
	}
	return nil
}

// SignalResult is the score of one instrument at its latest candle
type SignalResult struct {
	Symbol        string    `json:"symbol"`
	Signal        Signal    `json:"signal"`
	GridScore     int       `json:"grid_score"`
	VolatilityPct float64   `json:"volatility"`
	RSI           float64   `json:"rsi"`
	MACD          float64   `json:"macd"`
	MACDSignal    float64   `json:"macd_signal"`
	Timestamp     time.Time `json:"timestamp"`
}

// VolumeLevel is an aggregated order book price with its summed quantity
type VolumeLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// DepthBucket is one equal-width price bucket of an order book side
type DepthBucket struct {
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Volume float64 `json:"volume"` // notional
}

// Range renders the bucket the way interval labels are usually printed, e.g. (99.5, 100.0]
func (b DepthBucket) Range() string {
	return fmt.Sprintf("(%.8g, %.8g]", b.Lower, b.Upper)
}

// OrderBookAnalysis summarizes a depth snapshot
type OrderBookAnalysis struct {
	Spread           float64       `json:"spread"`
	SpreadPct        float64       `json:"spread_percentage"`
	BuySellRatio     float64       `json:"buy_sell_ratio"`
	SupportLevels    []VolumeLevel `json:"support_levels"`
	ResistanceLevels []VolumeLevel `json:"resistance_levels"`
	BidDistribution  []DepthBucket `json:"bid_distribution"`
	AskDistribution  []DepthBucket `json:"ask_distribution"`
}

// TrendResult is a moving-average crossover reading for one instrument
type TrendResult struct {
	Symbol          string  `json:"symbol"`
	Signal          Signal  `json:"signal"`
	Confidence      float64 `json:"confidence"`
	CurrentPrice    float64 `json:"current_price"`
	PriceChangePct  float64 `json:"price_change_1h"`
	MomentumPct     float64 `json:"momentum"`
	FastMA          float64 `json:"fast_ma"`
	SlowMA          float64 `json:"slow_ma"`
	VolumeChangePct float64 `json:"volume_change"`
}

// PairSummary is one scored instrument from a top pairs scan
type PairSummary struct {
	Symbol        string            `json:"symbol"` // base asset, quote stripped
	Pair          string            `json:"pair"`
	Price         float64           `json:"price"`
	Change24hPct  float64           `json:"change_24h"`
	Volume24h     float64           `json:"volume_24h"`
	RSI           float64           `json:"rsi"`
	Signal        Signal            `json:"signal"`
	GridScore     int               `json:"grid_score"`
	VolatilityPct float64           `json:"volatility"`
	Klines        []AnnotatedCandle `json:"klines"`
	Timestamp     time.Time         `json:"timestamp"`
}

// GridCandidate is a pair whose recent range and volume suit a grid
type GridCandidate struct {
	Symbol              string  `json:"symbol"`
	CurrentPrice        float64 `json:"current_price"`
	AvgHourlyVolatility float64 `json:"avg_hourly_volatility"`
	Volume24h           float64 `json:"volume_24h"`
	RangeLow            float64 `json:"price_range_low"`
	RangeHigh           float64 `json:"price_range_high"`
	RangeWidthPct       float64 `json:"range_width_percent"`
	SuggestedGrids      int     `json:"suggested_grid_levels"`
	ProfitPotentialPct  float64 `json:"estimated_profit_potential"`
}
