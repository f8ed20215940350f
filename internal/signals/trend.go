package signals

import (
	"math"
	"sort"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/internal/indicators"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

// TrendConfig configures the moving-average crossover reading
type TrendConfig struct {
	FastPeriod       int
	SlowPeriod       int
	MomentumBars     int
	VolumeConfirmPct float64
	MaxConfidence    float64
}

// DefaultTrendConfig returns SMA 7/20 with 5-bar momentum and 10% volume confirmation
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{
		FastPeriod:       7,
		SlowPeriod:       20,
		MomentumBars:     5,
		VolumeConfirmPct: 10,
		MaxConfidence:    0.95,
	}
}

// TrendSignal reads a fast/slow SMA crossover over closes and volumes of equal length.
// A buy needs fast > slow with price above fast, a sell the mirror image.
func TrendSignal(symbol string, closes, volumes []float64, cfg TrendConfig) (*types.TrendResult, error) {
	need := cfg.SlowPeriod
	if cfg.MomentumBars+1 > need {
		need = cfg.MomentumBars + 1
	}
	if len(closes) < need {
		return nil, engerrors.NewInsufficientData("signals", "TrendSignal", len(closes), need).
			WithContext("symbol", symbol)
	}
	if len(volumes) != len(closes) {
		return nil, engerrors.NewInvalidInput("signals", "TrendSignal", "closes and volumes differ in length")
	}

	fastSeries, err := indicators.NewSMA(cfg.FastPeriod).Calculate(closes)
	if err != nil {
		return nil, err
	}
	slowSeries, err := indicators.NewSMA(cfg.SlowPeriod).Calculate(closes)
	if err != nil {
		return nil, err
	}
	fast, _ := indicators.Last(fastSeries)
	slow, _ := indicators.Last(slowSeries)

	n := len(closes)
	price := closes[n-1]
	prev := closes[n-2]
	past := closes[n-1-cfg.MomentumBars]
	if price == 0 || prev == 0 || past == 0 {
		return nil, engerrors.NewDivisionUndefined("signals", "TrendSignal", "close price of 0 in lookback").
			WithContext("symbol", symbol)
	}

	signal := types.SignalNeutral
	confidence := 0.5
	switch {
	case fast > slow && price > fast:
		signal = types.SignalBuy
		confidence = math.Min(cfg.MaxConfidence, 0.5+(fast-slow)/price)
	case fast < slow && price < fast:
		signal = types.SignalSell
		confidence = math.Min(cfg.MaxConfidence, 0.5+(slow-fast)/price)
	}

	volumeChange := 0.0
	if v := volumes[n-2]; v > 0 {
		volumeChange = (volumes[n-1] - v) / v * 100
	}
	if (signal == types.SignalBuy && volumeChange > cfg.VolumeConfirmPct) ||
		(signal == types.SignalSell && volumeChange < -cfg.VolumeConfirmPct) {
		confidence = math.Min(cfg.MaxConfidence, confidence+0.1)
	}

	return &types.TrendResult{
		Symbol:          symbol,
		Signal:          signal,
		Confidence:      round(confidence, 2),
		CurrentPrice:    price,
		PriceChangePct:  round((price-prev)/prev*100, 2),
		MomentumPct:     round((price-past)/past*100, 2),
		FastMA:          fast,
		SlowMA:          slow,
		VolumeChangePct: round(volumeChange, 2),
	}, nil
}

// SortByConfidence orders trend readings by confidence, highest first
func SortByConfidence(results []types.TrendResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
