package signals

import (
	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/internal/indicators"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

// Grid suitability scores
const (
	ScoreIdeal    = 5
	ScoreMarginal = 3
	ScorePoor     = 1
)

// Config holds the scoring thresholds
type Config struct {
	OversoldRSI   float64
	OverboughtRSI float64
	// VolatilityWindow is how many trailing candles feed the average volatility, 0 means all
	VolatilityWindow int
}

// DefaultConfig returns RSI 30/70 over the whole lookback
func DefaultConfig() Config {
	return Config{
		OversoldRSI:   30,
		OverboughtRSI: 70,
	}
}

// Scorer turns an annotated candle history into a signal and a grid score
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// GridScore rates how well an average volatility suits grid trading.
// [1.5, 5] is ideal, [1, 1.5) and (5, 8] are marginal, anything else is poor.
func GridScore(volatilityPct float64) int {
	switch {
	case volatilityPct >= 1.5 && volatilityPct <= 5:
		return ScoreIdeal
	case volatilityPct >= 1 && volatilityPct < 1.5:
		return ScoreMarginal
	case volatilityPct > 5 && volatilityPct <= 8:
		return ScoreMarginal
	default:
		return ScorePoor
	}
}

// Classify applies the signal rules top-down; the first match wins
func (s *Scorer) Classify(rsi, macd, macdSignal float64) types.Signal {
	switch {
	case rsi < s.cfg.OversoldRSI:
		return types.SignalBuy
	case rsi > s.cfg.OverboughtRSI:
		return types.SignalSell
	case macd > macdSignal:
		return types.SignalBuy
	case macd < macdSignal:
		return types.SignalSell
	default:
		return types.SignalNeutral
	}
}

// Score reads the latest annotated candle and the mean volatility of the lookback window
func (s *Scorer) Score(symbol string, candles []types.AnnotatedCandle) (*types.SignalResult, error) {
	if len(candles) == 0 {
		return nil, engerrors.NewInsufficientData("signals", "Score", 0, 1).WithContext("symbol", symbol)
	}

	latest := candles[len(candles)-1]
	if latest.RSI == nil || latest.MACD == nil || latest.MACDSignal == nil {
		return nil, engerrors.NewEngineError(engerrors.ErrorCategoryInsufficientData, "signals", "Score",
			"latest candle has undefined RSI or MACD values").WithContext("symbol", symbol)
	}

	volatility, err := indicators.MeanVolatility(candles, s.cfg.VolatilityWindow)
	if err != nil {
		return nil, err
	}

	return &types.SignalResult{
		Symbol:        symbol,
		Signal:        s.Classify(*latest.RSI, *latest.MACD, *latest.MACDSignal),
		GridScore:     GridScore(volatility),
		VolatilityPct: volatility,
		RSI:           *latest.RSI,
		MACD:          *latest.MACD,
		MACDSignal:    *latest.MACDSignal,
		Timestamp:     latest.Timestamp,
	}, nil
}
