package indicators

// SMA represents the Simple Moving Average technical indicator
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

// Calculate returns the rolling mean of values. The first value is at index period-1.
func (s *SMA) Calculate(values []float64) ([]float64, error) {
	if err := validatePeriod(s.GetName(), s.period); err != nil {
		return nil, err
	}
	if err := requireLength(s.GetName(), len(values), s.period); err != nil {
		return nil, err
	}

	out := undefinedSeries(len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= s.period {
			sum -= values[i-s.period]
		}
		if i >= s.period-1 {
			out[i] = sum / float64(s.period)
		}
	}
	return out, nil
}

// GetName returns the indicator name
func (s *SMA) GetName() string {
	return "SMA"
}

// GetRequiredPeriods returns the number of values needed for the first output
func (s *SMA) GetRequiredPeriods() int {
	return s.period
}

// Mean returns the arithmetic mean of values, or false when values is empty
func Mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}
