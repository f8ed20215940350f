package indicators

// MACD computes the Moving Average Convergence Divergence lines
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// MACDResult holds the three MACD series, each aligned with the input prices
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// NewMACD creates a new MACD instance with specified fast, slow, and signal periods
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
	}
}

// Calculate computes the MACD line, signal line, and histogram.
// MACD is defined from index slow-1, the signal line from slow+signal-2.
func (m *MACD) Calculate(prices []float64) (MACDResult, error) {
	for _, p := range []int{m.fastPeriod, m.slowPeriod, m.signalPeriod} {
		if err := validatePeriod(m.GetName(), p); err != nil {
			return MACDResult{}, err
		}
	}
	if err := requireLength(m.GetName(), len(prices), m.GetRequiredPeriods()); err != nil {
		return MACDResult{}, err
	}

	fast, _ := NewEMA(m.fastPeriod).Calculate(prices)
	slow, _ := NewEMA(m.slowPeriod).Calculate(prices)

	n := len(prices)
	macdLine := undefinedSeries(n)
	start := n
	for i := 0; i < n; i++ {
		if IsDefined(fast[i]) && IsDefined(slow[i]) {
			macdLine[i] = fast[i] - slow[i]
			if i < start {
				start = i
			}
		}
	}

	signal := NewEMA(m.signalPeriod).calculateFrom(macdLine, start)

	hist := undefinedSeries(n)
	for i := 0; i < n; i++ {
		if IsDefined(signal[i]) {
			hist[i] = macdLine[i] - signal[i]
		}
	}

	return MACDResult{MACD: macdLine, Signal: signal, Histogram: hist}, nil
}

// GetName returns the indicator name
func (m *MACD) GetName() string {
	return "MACD"
}

// GetRequiredPeriods returns the length needed for the first signal value
func (m *MACD) GetRequiredPeriods() int {
	slow := m.slowPeriod
	if m.fastPeriod > slow {
		slow = m.fastPeriod
	}
	return slow + m.signalPeriod - 1
}
