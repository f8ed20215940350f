package data

import (
	"fmt"
	"sort"
	"time"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

// FilterByPeriod keeps the candles that fall within period of the latest one
func FilterByPeriod(data []types.OHLCV, period time.Duration) []types.OHLCV {
	if period <= 0 || len(data) == 0 {
		return data
	}

	cutoff := data[len(data)-1].Timestamp.Add(-period)
	start := sort.Search(len(data), func(i int) bool {
		return !data[i].Timestamp.Before(cutoff)
	})
	return data[start:]
}

// FilterByDateRange keeps candles with start <= open time <= end. A zero start or
// end leaves that side open.
func FilterByDateRange(data []types.OHLCV, start, end time.Time) []types.OHLCV {
	var filtered []types.OHLCV
	for _, candle := range data {
		if (start.IsZero() || !candle.Timestamp.Before(start)) && (end.IsZero() || !candle.Timestamp.After(end)) {
			filtered = append(filtered, candle)
		}
	}
	return filtered
}

// ValidateTimeSequence ensures open times are strictly increasing
func ValidateTimeSequence(data []types.OHLCV) error {
	for i := 1; i < len(data); i++ {
		if data[i].Timestamp.Before(data[i-1].Timestamp) {
			return engerrors.NewInvalidInput("data", "ValidateTimeSequence",
				fmt.Sprintf("data not in chronological order at index %d: %s comes after %s",
					i, data[i].Timestamp.Format(time.RFC3339), data[i-1].Timestamp.Format(time.RFC3339))).
				WithContext("index", i)
		}

		if data[i].Timestamp.Equal(data[i-1].Timestamp) {
			return engerrors.NewInvalidInput("data", "ValidateTimeSequence",
				fmt.Sprintf("duplicate timestamp at index %d: %s", i, data[i].Timestamp.Format(time.RFC3339))).
				WithContext("index", i)
		}
	}
	return nil
}

// Normalize returns a copy sorted by open time with duplicate open times removed,
// keeping the first occurrence
func Normalize(data []types.OHLCV) []types.OHLCV {
	if len(data) <= 1 {
		return data
	}

	sorted := make([]types.OHLCV, len(data))
	copy(sorted, data)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := sorted[:1]
	for _, candle := range sorted[1:] {
		if !candle.Timestamp.Equal(out[len(out)-1].Timestamp) {
			out = append(out, candle)
		}
	}
	return out
}
