package indicators

import "math"

// BollingerBands represents the Bollinger Bands indicator
type BollingerBands struct {
	period         int
	stdDevMultiple float64
}

// BollingerResult holds the three band series aligned with the input prices
type BollingerResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// NewBollingerBands creates a new BollingerBands instance with the given period and standard deviation multiplier
func NewBollingerBands(period int, stdDev float64) *BollingerBands {
	return &BollingerBands{
		period:         period,
		stdDevMultiple: stdDev,
	}
}

// Calculate computes the bands with the population standard deviation of each window
func (bb *BollingerBands) Calculate(prices []float64) (BollingerResult, error) {
	middle, err := NewSMA(bb.period).Calculate(prices)
	if err != nil {
		return BollingerResult{}, err
	}

	n := len(prices)
	upper := undefinedSeries(n)
	lower := undefinedSeries(n)
	for i := bb.period - 1; i < n; i++ {
		stdDev := bb.standardDeviation(prices[i-bb.period+1:i+1], middle[i])
		upper[i] = middle[i] + bb.stdDevMultiple*stdDev
		lower[i] = middle[i] - bb.stdDevMultiple*stdDev
	}

	return BollingerResult{Upper: upper, Middle: middle, Lower: lower}, nil
}

// GetName returns the indicator name
func (bb *BollingerBands) GetName() string {
	return "BollingerBands"
}

// GetRequiredPeriods returns the window length
func (bb *BollingerBands) GetRequiredPeriods() int {
	return bb.period
}

func (bb *BollingerBands) standardDeviation(values []float64, mean float64) float64 {
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
