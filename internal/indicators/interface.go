package indicators

import (
	"math"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
)

const component = "indicators"

// SeriesIndicator computes a value for every index of the input series.
// Indices inside the warm-up window hold NaN.
type SeriesIndicator interface {
	Calculate(values []float64) ([]float64, error)
	GetName() string
	GetRequiredPeriods() int
}

// IsDefined reports whether v is a computed indicator value
func IsDefined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Last returns the final value of a series and whether it is defined
func Last(series []float64) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	v := series[len(series)-1]
	return v, IsDefined(v)
}

// At converts a series value to the optional form used by annotated candles
func At(series []float64, i int) *float64 {
	if i < 0 || i >= len(series) || !IsDefined(series[i]) {
		return nil
	}
	v := series[i]
	return &v
}

func undefinedSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func validatePeriod(name string, period int) error {
	if period < 1 {
		return engerrors.NewInvalidInput(component, name, "period must be positive").
			WithContext("period", period)
	}
	return nil
}

func requireLength(name string, have, need int) error {
	if have < need {
		return engerrors.NewInsufficientData(component, name, have, need)
	}
	return nil
}
