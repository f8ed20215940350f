package indicators

import (
	"fmt"

	"github.com/ducminhle1904/gridscope/pkg/types"
)

// Settings holds the indicator windows used to annotate candles
type Settings struct {
	RSIPeriod      int
	MACDFast       int
	MACDSlow       int
	MACDSignal     int
	BollingerWidth int
	BollingerK     float64
}

// DefaultSettings returns RSI(14), MACD(12,26,9) and Bollinger(20,2)
func DefaultSettings() Settings {
	return Settings{
		RSIPeriod:      14,
		MACDFast:       12,
		MACDSlow:       26,
		MACDSignal:     9,
		BollingerWidth: 20,
		BollingerK:     2,
	}
}

// RequiredPeriods is the longest warm-up among the configured indicators
func (s Settings) RequiredPeriods() int {
	need := NewRSI(s.RSIPeriod).GetRequiredPeriods()
	if m := NewMACD(s.MACDFast, s.MACDSlow, s.MACDSignal).GetRequiredPeriods(); m > need {
		need = m
	}
	if s.BollingerWidth > need {
		need = s.BollingerWidth
	}
	return need
}

// Annotate computes every indicator over the candle closes and attaches the values to each
// candle. Fields still inside their warm-up are left nil.
func Annotate(candles []types.OHLCV, s Settings) ([]types.AnnotatedCandle, error) {
	if err := requireLength("Annotate", len(candles), s.RequiredPeriods()); err != nil {
		return nil, err
	}

	closes := types.Closes(candles)

	rsi, err := NewRSI(s.RSIPeriod).Calculate(closes)
	if err != nil {
		return nil, fmt.Errorf("annotate rsi: %w", err)
	}
	macd, err := NewMACD(s.MACDFast, s.MACDSlow, s.MACDSignal).Calculate(closes)
	if err != nil {
		return nil, fmt.Errorf("annotate macd: %w", err)
	}
	bands, err := NewBollingerBands(s.BollingerWidth, s.BollingerK).Calculate(closes)
	if err != nil {
		return nil, fmt.Errorf("annotate bollinger: %w", err)
	}
	vol, err := Volatility(candles)
	if err != nil {
		return nil, fmt.Errorf("annotate volatility: %w", err)
	}

	out := make([]types.AnnotatedCandle, len(candles))
	for i, c := range candles {
		out[i] = types.AnnotatedCandle{
			OHLCV:           c,
			RSI:             At(rsi, i),
			MACD:            At(macd.MACD, i),
			MACDSignal:      At(macd.Signal, i),
			MACDHist:        At(macd.Histogram, i),
			BollingerUpper:  At(bands.Upper, i),
			BollingerMiddle: At(bands.Middle, i),
			BollingerLower:  At(bands.Lower, i),
			VolatilityPct:   vol[i],
		}
	}
	return out, nil
}
