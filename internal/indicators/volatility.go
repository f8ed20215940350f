package indicators

import (
	"fmt"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

// CandleVolatility returns (high-low)/low*100 for a single candle
func CandleVolatility(c types.OHLCV) (float64, error) {
	if c.Low == 0 {
		return 0, engerrors.NewDivisionUndefined(component, "Volatility",
			fmt.Sprintf("candle at %s has a low price of 0", c.Timestamp.UTC().Format("2006-01-02T15:04:05Z")))
	}
	return (c.High - c.Low) / c.Low * 100, nil
}

// Volatility returns the per-candle volatility percentage series
func Volatility(candles []types.OHLCV) ([]float64, error) {
	out := make([]float64, len(candles))
	for i, c := range candles {
		v, err := CandleVolatility(c)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// AverageVolatility is the mean volatility of the last window candles.
// A window of 0 averages the whole series.
func AverageVolatility(candles []types.OHLCV, window int) (float64, error) {
	if window < 0 {
		return 0, engerrors.NewInvalidInput(component, "AverageVolatility", "window must not be negative")
	}
	if len(candles) == 0 {
		return 0, engerrors.NewInsufficientData(component, "AverageVolatility", 0, 1)
	}
	if window == 0 {
		window = len(candles)
	}
	if err := requireLength("AverageVolatility", len(candles), window); err != nil {
		return 0, err
	}

	series, err := Volatility(candles[len(candles)-window:])
	if err != nil {
		return 0, err
	}
	mean, _ := Mean(series)
	return mean, nil
}

// MeanVolatility averages the already computed volatility of annotated candles.
// A window of 0 or larger than the series averages everything.
func MeanVolatility(candles []types.AnnotatedCandle, window int) (float64, error) {
	if len(candles) == 0 {
		return 0, engerrors.NewInsufficientData(component, "MeanVolatility", 0, 1)
	}
	if window <= 0 || window > len(candles) {
		window = len(candles)
	}
	sum := 0.0
	for _, c := range candles[len(candles)-window:] {
		sum += c.VolatilityPct
	}
	return sum / float64(window), nil
}
