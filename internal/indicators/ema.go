package indicators

// EMA represents the Exponential Moving Average technical indicator
type EMA struct {
	period int
	alpha  float64
}

// NewEMA creates a new EMA indicator
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1),
	}
}

// Calculate returns the EMA series. The SMA of the first period values seeds index period-1.
func (e *EMA) Calculate(values []float64) ([]float64, error) {
	if err := validatePeriod(e.GetName(), e.period); err != nil {
		return nil, err
	}
	if err := requireLength(e.GetName(), len(values), e.period); err != nil {
		return nil, err
	}
	return e.calculateFrom(values, 0), nil
}

// calculateFrom runs the EMA over values[start:], leaving everything before the seed undefined.
// Callers guarantee len(values)-start >= period.
func (e *EMA) calculateFrom(values []float64, start int) []float64 {
	out := undefinedSeries(len(values))
	seedIdx := start + e.period - 1

	sum := 0.0
	for i := start; i <= seedIdx; i++ {
		sum += values[i]
	}
	prev := sum / float64(e.period)
	out[seedIdx] = prev

	// EMA = (Value * Alpha) + (Previous EMA * (1 - Alpha))
	for i := seedIdx + 1; i < len(values); i++ {
		prev = values[i]*e.alpha + prev*(1-e.alpha)
		out[i] = prev
	}
	return out
}

// GetName returns the indicator name
func (e *EMA) GetName() string {
	return "EMA"
}

// GetRequiredPeriods returns the number of values needed for the first output
func (e *EMA) GetRequiredPeriods() int {
	return e.period
}
