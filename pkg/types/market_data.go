package types

import "time"

// OHLCV is a single candle. Timestamp is the candle open time.
type OHLCV struct {
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"open_time"`
}

// AnnotatedCandle is a candle with the indicator values computed at its index.
// A nil indicator field means the value is still inside the indicator warm-up.
type AnnotatedCandle struct {
	OHLCV

	RSI             *float64 `json:"rsi"`
	MACD            *float64 `json:"macd"`
	MACDSignal      *float64 `json:"macd_signal"`
	MACDHist        *float64 `json:"macd_hist"`
	BollingerUpper  *float64 `json:"bollinger_upper"`
	BollingerMiddle *float64 `json:"bollinger_middle"`
	BollingerLower  *float64 `json:"bollinger_lower"`
	VolatilityPct   float64  `json:"volatility_pct"`
}

// InstrumentSnapshot is the 24h ticker view of one instrument
type InstrumentSnapshot struct {
	Symbol            string  `json:"symbol"`
	LastPrice         float64 `json:"last_price"`
	PriceChangePct24h float64 `json:"price_change_pct_24h"`
	QuoteVolume24h    float64 `json:"quote_volume_24h"`
	TradeCount24h     int64   `json:"trade_count_24h"`
}

// PriceLevel is one (price, quantity) entry of an order book side
type PriceLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// Notional returns price * quantity
func (p PriceLevel) Notional() float64 {
	return p.Price * p.Quantity
}

// DepthSnapshot is a point-in-time order book
type DepthSnapshot struct {
	Symbol    string       `json:"symbol"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp time.Time    `json:"timestamp"`
}

// Closes extracts close prices from a candle slice
func Closes(candles []OHLCV) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// Volumes extracts base volumes from a candle slice
func Volumes(candles []OHLCV) []float64 {
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		volumes[i] = c.Volume
	}
	return volumes
}
