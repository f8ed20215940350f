package indicators

// RSI calculates the Relative Strength Index with Wilder smoothing
type RSI struct {
	period int
}

// NewRSI creates a new RSI instance with the given period
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Calculate computes the RSI series. The first average gain and loss are the
// plain means of the first period changes, so the first value lands at index period.
func (r *RSI) Calculate(prices []float64) ([]float64, error) {
	if err := validatePeriod(r.GetName(), r.period); err != nil {
		return nil, err
	}
	if err := requireLength(r.GetName(), len(prices), r.GetRequiredPeriods()); err != nil {
		return nil, err
	}

	out := undefinedSeries(len(prices))
	p := float64(r.period)

	var avgGain, avgLoss float64
	for i := 1; i <= r.period; i++ {
		gain, loss := split(prices[i] - prices[i-1])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= p
	avgLoss /= p
	out[r.period] = rsiValue(avgGain, avgLoss)

	for i := r.period + 1; i < len(prices); i++ {
		gain, loss := split(prices[i] - prices[i-1])
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = rsiValue(avgGain, avgLoss)
	}

	return out, nil
}

// GetName returns the indicator name
func (r *RSI) GetName() string {
	return "RSI"
}

// GetRequiredPeriods returns period+1 since RSI works on price changes
func (r *RSI) GetRequiredPeriods() int {
	return r.period + 1
}

func split(change float64) (gain, loss float64) {
	if change > 0 {
		return change, 0
	}
	return 0, -change
}

func rsiValue(avgGain, avgLoss float64) float64 {
	switch {
	case avgGain == 0 && avgLoss == 0:
		// no movement at all
		return 50
	case avgLoss == 0:
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
