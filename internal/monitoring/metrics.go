package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

var (
	// Engine metrics
	computationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridscope_computations_total",
			Help: "Total number of engine computations",
		},
		[]string{"operation", "status"},
	)

	computationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridscope_computation_duration_seconds",
			Help:    "Duration of engine computations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	backtestTradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridscope_backtest_trades_total",
			Help: "Total number of simulated grid fills",
		},
		[]string{"side"},
	)

	// Market data metrics
	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridscope_fetch_duration_seconds",
			Help:    "Latency of market data requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"exchange", "endpoint"},
	)

	rateLimitRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridscope_rate_limit_retries_total",
			Help: "Total number of retries after a rate limit response",
		},
		[]string{"exchange", "endpoint"},
	)

	lastPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gridscope_last_price",
			Help: "Last observed price of a symbol",
		},
		[]string{"symbol"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridscope_errors_total",
			Help: "Total number of errors by category",
		},
		[]string{"category"},
	)
)

func init() {
	prometheus.MustRegister(computationsTotal)
	prometheus.MustRegister(computationDuration)
	prometheus.MustRegister(backtestTradesTotal)
	prometheus.MustRegister(fetchDuration)
	prometheus.MustRegister(rateLimitRetries)
	prometheus.MustRegister(lastPrice)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct {
	next http.Handler
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{next: promhttp.Handler()}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.next.ServeHTTP(w, r)
}

// RecordComputation counts an engine call started at start. A failed call
// also counts its error category.
func RecordComputation(operation string, start time.Time, err error) {
	computationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
		RecordError(err)
	}
	computationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordBacktest counts the fills of a finished simulation
func RecordBacktest(result *types.BacktestResult) {
	if result == nil {
		return
	}
	backtestTradesTotal.WithLabelValues(string(types.SideBuy)).Add(float64(result.Summary.BuyCount))
	backtestTradesTotal.WithLabelValues(string(types.SideSell)).Add(float64(result.Summary.SellCount))
}

// ObserveFetch records the latency of one market data request
func ObserveFetch(exchange, endpoint string, d time.Duration) {
	fetchDuration.WithLabelValues(exchange, endpoint).Observe(d.Seconds())
}

// RecordRateLimitRetry counts a retry caused by rate limiting
func RecordRateLimitRetry(exchange, endpoint string) {
	rateLimitRetries.WithLabelValues(exchange, endpoint).Inc()
}

// UpdatePrice updates the last price metric
func UpdatePrice(symbol string, price float64) {
	lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordError counts err under its engine category, "UNKNOWN" otherwise
func RecordError(err error) {
	category := "UNKNOWN"
	if cat, ok := engerrors.CategoryOf(err); ok {
		category = string(cat)
	}
	errorsTotal.WithLabelValues(category).Inc()
}
