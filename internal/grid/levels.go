package grid

import "github.com/ducminhle1904/gridscope/pkg/types"

// LinearLevels returns count evenly spaced prices from lower to upper inclusive.
// The last level is set to upper exactly so rounding never drops it.
func LinearLevels(lower, upper float64, count int) []float64 {
	if count <= 0 {
		return nil
	}
	if count == 1 {
		return []float64{lower}
	}
	levels := make([]float64, count)
	step := (upper - lower) / float64(count-1)
	for i := 0; i < count-1; i++ {
		levels[i] = lower + step*float64(i)
	}
	levels[count-1] = upper
	return levels
}

// CrossedLevel reports whether the candle's high-low range touched the grid price
func CrossedLevel(candle types.OHLCV, gridPrice float64) bool {
	return gridPrice >= candle.Low && gridPrice <= candle.High
}

// SuggestGridCount maps a range width in percent to a grid count, one grid per
// stepPct of range, clamped to [minGrids, maxGrids]
func SuggestGridCount(rangeWidthPct, stepPct float64, minGrids, maxGrids int) int {
	if stepPct <= 0 {
		return minGrids
	}
	n := int(rangeWidthPct / stepPct)
	if n < minGrids {
		return minGrids
	}
	if n > maxGrids {
		return maxGrids
	}
	return n
}
