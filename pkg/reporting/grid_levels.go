package reporting

import (
	"math"
	"sort"

	"github.com/ducminhle1904/gridscope/pkg/types"
)

// GridLevelStats represents the fills and realized P&L of one grid level
type GridLevelStats struct {
	Level          int     `json:"level"`
	Price          float64 `json:"price"`
	Buys           int     `json:"buys"`
	Sells          int     `json:"sells"`
	TimesTriggered int     `json:"times_triggered"`
	TotalVolume    float64 `json:"total_volume"`
	RealizedPnL    float64 `json:"realized_pnl"`
	AvgPnL         float64 `json:"avg_pnl"`
	WinCount       int     `json:"win_count"`
	LossCount      int     `json:"loss_count"`
	WinRate        float64 `json:"win_rate"`
}

// Used reports whether the level filled at least once
func (s GridLevelStats) Used() bool { return s.TimesTriggered > 0 }

// PriceRangeAnalysis describes how much of the grid the fills covered
type PriceRangeAnalysis struct {
	MinFillPrice    float64 `json:"min_fill_price"`
	MaxFillPrice    float64 `json:"max_fill_price"`
	RangeUsedPct    float64 `json:"range_used_pct"`
	LevelsTriggered int     `json:"levels_triggered"`
	LevelsIdle      int     `json:"levels_idle"`
}

// AnalyzeGridLevels attributes every trade to its grid level. A sell realizes
// amount × (price − average cost of the base held); buys realize nothing.
func AnalyzeGridLevels(result *types.BacktestResult) ([]GridLevelStats, PriceRangeAnalysis) {
	stats := make([]GridLevelStats, len(result.GridLevels))
	for i, price := range result.GridLevels {
		stats[i] = GridLevelStats{Level: i + 1, Price: price}
	}

	var (
		held, cost float64
		analysis   = PriceRangeAnalysis{MinFillPrice: math.Inf(1), MaxFillPrice: math.Inf(-1)}
	)
	for _, t := range result.Trades {
		analysis.MinFillPrice = math.Min(analysis.MinFillPrice, t.Price)
		analysis.MaxFillPrice = math.Max(analysis.MaxFillPrice, t.Price)

		idx := nearestLevel(result.GridLevels, t.Price)
		if idx < 0 {
			continue
		}
		s := &stats[idx]
		s.TimesTriggered++
		s.TotalVolume += t.Total

		if t.Side == types.SideBuy {
			s.Buys++
			held += t.Amount
			cost += t.Total
			continue
		}

		s.Sells++
		avgCost := 0.0
		if held > 0 {
			avgCost = cost / held
		}
		pnl := t.Amount * (t.Price - avgCost)
		s.RealizedPnL += pnl
		if pnl > 0 {
			s.WinCount++
		} else {
			s.LossCount++
		}
		cost -= t.Amount * avgCost
		held -= t.Amount
		if held <= 0 {
			held, cost = 0, 0
		}
	}

	for i := range stats {
		s := &stats[i]
		if !s.Used() {
			analysis.LevelsIdle++
			continue
		}
		analysis.LevelsTriggered++
		s.AvgPnL = s.RealizedPnL / float64(s.TimesTriggered)
		if s.WinCount+s.LossCount > 0 {
			s.WinRate = float64(s.WinCount) / float64(s.WinCount+s.LossCount)
		}
	}

	if len(result.Trades) == 0 {
		analysis.MinFillPrice, analysis.MaxFillPrice = 0, 0
	} else if n := len(result.GridLevels); n > 1 {
		if span := result.GridLevels[n-1] - result.GridLevels[0]; span > 0 {
			analysis.RangeUsedPct = (analysis.MaxFillPrice - analysis.MinFillPrice) / span * 100
		}
	}
	return stats, analysis
}

// nearestLevel returns the index of the level closest to price, or -1 without levels
func nearestLevel(levels []float64, price float64) int {
	if len(levels) == 0 {
		return -1
	}
	i := sort.SearchFloat64s(levels, price)
	switch {
	case i == 0:
		return 0
	case i == len(levels):
		return len(levels) - 1
	case levels[i]-price < price-levels[i-1]:
		return i
	default:
		return i - 1
	}
}
