package signals

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

func ptr(v float64) *float64 { return &v }

func annotated(rsi, macd, signal *float64, volatility ...float64) []types.AnnotatedCandle {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.AnnotatedCandle, len(volatility))
	for i, v := range volatility {
		out[i] = types.AnnotatedCandle{
			OHLCV:         types.OHLCV{Close: 100, Timestamp: start.Add(time.Duration(i) * 4 * time.Hour)},
			VolatilityPct: v,
		}
	}
	last := &out[len(out)-1]
	last.RSI, last.MACD, last.MACDSignal = rsi, macd, signal
	return out
}

func TestGridScore_Tiers(t *testing.T) {
	tests := []struct {
		volatility float64
		score      int
	}{
		{0.5, ScorePoor},
		{0.99, ScorePoor},
		{1.0, ScoreMarginal},
		{1.49, ScoreMarginal},
		{1.5, ScoreIdeal},
		{3.2, ScoreIdeal},
		{5.0, ScoreIdeal},
		{5.01, ScoreMarginal},
		{8.0, ScoreMarginal},
		{8.01, ScorePoor},
		{25, ScorePoor},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.score, GridScore(tt.volatility), "volatility %v", tt.volatility)
	}
}

func TestClassify_Precedence(t *testing.T) {
	s := NewScorer(DefaultConfig())

	assert.Equal(t, types.SignalBuy, s.Classify(25, 1, 2), "oversold RSI wins over bearish MACD")
	assert.Equal(t, types.SignalSell, s.Classify(75, 2, 1), "overbought RSI wins over bullish MACD")
	assert.Equal(t, types.SignalBuy, s.Classify(50, 2, 1))
	assert.Equal(t, types.SignalSell, s.Classify(50, 1, 2))
	assert.Equal(t, types.SignalNeutral, s.Classify(50, 1, 1))
	assert.Equal(t, types.SignalBuy, s.Classify(30, 2, 1), "RSI of exactly 30 falls through to MACD")
	assert.Equal(t, types.SignalSell, s.Classify(70, 1, 2), "RSI of exactly 70 falls through to MACD")
}

func TestScore(t *testing.T) {
	candles := annotated(ptr(25), ptr(-1), ptr(0.5), 1.0, 2.0, 3.0)
	res, err := NewScorer(DefaultConfig()).Score("SOLUSDT", candles)
	require.NoError(t, err)

	assert.Equal(t, "SOLUSDT", res.Symbol)
	assert.Equal(t, types.SignalBuy, res.Signal)
	assert.InDelta(t, 2.0, res.VolatilityPct, 1e-12)
	assert.Equal(t, ScoreIdeal, res.GridScore)
	assert.Equal(t, 25.0, res.RSI)
	assert.Equal(t, candles[2].Timestamp, res.Timestamp)
}

func TestScore_VolatilityWindow(t *testing.T) {
	candles := annotated(ptr(50), ptr(1), ptr(1), 20, 20, 1.2, 1.2)
	res, err := NewScorer(Config{OversoldRSI: 30, OverboughtRSI: 70, VolatilityWindow: 2}).Score("X", candles)
	require.NoError(t, err)
	assert.InDelta(t, 1.2, res.VolatilityPct, 1e-12)
	assert.Equal(t, ScoreMarginal, res.GridScore)
	assert.Equal(t, types.SignalNeutral, res.Signal)
}

func TestScore_InsufficientData(t *testing.T) {
	s := NewScorer(DefaultConfig())

	_, err := s.Score("X", nil)
	assert.True(t, errors.Is(err, engerrors.ErrInsufficientData))

	_, err = s.Score("X", annotated(ptr(40), nil, ptr(1), 2))
	assert.True(t, errors.Is(err, engerrors.ErrInsufficientData))
}

func TestRank(t *testing.T) {
	results := []types.SignalResult{
		{Symbol: "A", GridScore: 3},
		{Symbol: "B", GridScore: 5},
		{Symbol: "C", GridScore: 3},
		{Symbol: "D", GridScore: 1},
		{Symbol: "E", GridScore: 5},
	}

	ranked := Rank(results, nil)
	got := make([]string, len(ranked))
	for i, r := range ranked {
		got[i] = r.Symbol
	}
	assert.Equal(t, []string{"B", "E", "A", "C", "D"}, got)
	assert.Equal(t, "A", results[0].Symbol, "input untouched")

	volume := map[string]float64{"A": 1, "B": 2, "C": 9, "D": 0, "E": 7}
	ranked = Rank(results, func(a, b types.SignalResult) bool { return volume[a.Symbol] > volume[b.Symbol] })
	for i, r := range ranked {
		got[i] = r.Symbol
	}
	assert.Equal(t, []string{"E", "B", "C", "A", "D"}, got)
}
