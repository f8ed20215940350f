// Package api exposes the grid engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ducminhle1904/gridscope/internal/backtest"
	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/internal/exchange"
	"github.com/ducminhle1904/gridscope/internal/grid"
	"github.com/ducminhle1904/gridscope/internal/logger"
	"github.com/ducminhle1904/gridscope/internal/monitoring"
	"github.com/ducminhle1904/gridscope/internal/orderbook"
	"github.com/ducminhle1904/gridscope/internal/screener"
	"github.com/ducminhle1904/gridscope/pkg/config"
	"github.com/ducminhle1904/gridscope/pkg/data"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

// GridRequest is the body of the grid calculate and backtest endpoints.
// Candles, when present, are kline rows replayed instead of fetched history.
type GridRequest struct {
	Symbol     string          `json:"symbol"`
	GridCount  int             `json:"grid_count"`
	Investment float64         `json:"investment"`
	Candles    [][]interface{} `json:"candles,omitempty"`
}

// OrderBookResponse is an order book analysis with the symbol and the snapshot time
type OrderBookResponse struct {
	Symbol string `json:"symbol"`
	*types.OrderBookAnalysis
	Timestamp time.Time `json:"timestamp"`
}

// Service serves the engine over a market data source
type Service struct {
	cfg        *config.Config
	source     exchange.MarketDataSource
	screener   *screener.Screener
	calculator *grid.Calculator
	engine     *backtest.Engine
	analyzer   *orderbook.Analyzer
	health     *monitoring.HealthChecker
	log        *logger.Logger
}

// NewService wires a service. health and log may be nil.
func NewService(cfg *config.Config, source exchange.MarketDataSource, scr *screener.Screener, health *monitoring.HealthChecker, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		cfg:        cfg,
		source:     source,
		screener:   scr,
		calculator: grid.NewCalculator(cfg.Grid.RangeMultiplier),
		engine:     backtest.NewEngine(cfg.BacktestOptions()),
		analyzer:   orderbook.NewAnalyzer(cfg.OrderBookSettings()),
		health:     health,
		log:        log.With(zap.String("component", "api")),
	}
}

// RegisterRoutes adds every endpoint to mux
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/grid/calculate", s.handleGridCalculate)
	mux.HandleFunc("POST /api/grid/backtest", s.handleGridBacktest)
	mux.HandleFunc("GET /api/market/top-pairs", s.handleTopPairs)
	mux.HandleFunc("GET /api/market/grid-opportunities", s.handleGridOpportunities)
	mux.HandleFunc("GET /api/market/grid-pairs", s.handleGridPairs)
	mux.HandleFunc("GET /api/market/order-book/{symbol}", s.handleOrderBook)
	mux.HandleFunc("GET /api/signals", s.handleSignals)
	mux.HandleFunc("GET /api/signals/trends", s.handleTrends)

	if s.cfg.Metrics.Enabled {
		mux.Handle("GET "+s.cfg.Metrics.Path, monitoring.NewMetricsHandler())
	}
	if s.health != nil {
		mux.Handle("GET /healthz", s.health)
	}
}

// Handler returns the routed handler with CORS applied
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return withCORS(mux)
}

// Serve listens on the configured address until ctx is cancelled
func (s *Service) Serve(ctx context.Context) error {
	read, write := s.cfg.ServerTimeouts()
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  read,
		WriteTimeout: write,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("HTTP server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Service) handleGridCalculate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeGridRequest(w, r)
	if !ok {
		return
	}
	pair, err := s.screener.FindPair(r.Context(), req.Symbol)
	if err != nil {
		s.fail(w, "grid calculate", err)
		return
	}

	start := time.Now()
	plan, err := s.calculator.ComputeGrid(req.Symbol, pair.Price, pair.VolatilityPct, req.GridCount)
	monitoring.RecordComputation("grid", start, err)
	if err != nil {
		s.fail(w, "grid calculate", err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Service) handleGridBacktest(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeGridRequest(w, r)
	if !ok {
		return
	}
	if req.Investment == 0 {
		req.Investment = s.cfg.Backtest.Investment
	}

	candles, err := s.backtestCandles(r.Context(), req)
	if err != nil {
		s.fail(w, "grid backtest", err)
		return
	}

	start := time.Now()
	result, err := s.engine.Run(req.Symbol, candles, req.GridCount, req.Investment)
	monitoring.RecordComputation("backtest", start, err)
	if err != nil {
		s.fail(w, "grid backtest", err)
		return
	}
	monitoring.RecordBacktest(result)
	s.log.Backtest(result)
	writeJSON(w, http.StatusOK, result)
}

func (s *Service) backtestCandles(ctx context.Context, req GridRequest) ([]types.OHLCV, error) {
	if len(req.Candles) > 0 {
		return data.ParseKlineRows(req.Candles)
	}
	return s.source.Klines(ctx, s.screener.Pair(req.Symbol), s.cfg.Backtest.Interval, s.cfg.Backtest.Limit)
}

func (s *Service) handleTopPairs(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	pairs, err := s.screener.TopPairs(r.Context(), limit)
	if err != nil {
		s.fail(w, "top pairs", err)
		return
	}
	writeJSON(w, http.StatusOK, pairs)
}

func (s *Service) handleGridOpportunities(w http.ResponseWriter, r *http.Request) {
	pairs, err := s.screener.GridOpportunities(r.Context())
	if err != nil {
		s.fail(w, "grid opportunities", err)
		return
	}
	writeJSON(w, http.StatusOK, pairs)
}

func (s *Service) handleGridPairs(w http.ResponseWriter, r *http.Request) {
	pairs, err := s.screener.GridPairs(r.Context())
	if err != nil {
		s.fail(w, "grid pairs", err)
		return
	}
	writeJSON(w, http.StatusOK, pairs)
}

func (s *Service) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	symbol := s.screener.Pair(r.PathValue("symbol"))
	snapshot, err := s.source.Depth(r.Context(), symbol, s.cfg.OrderBook.DepthLimit)
	if err != nil {
		s.fail(w, "order book", err)
		return
	}

	start := time.Now()
	analysis, err := s.analyzer.AnalyzeSnapshot(*snapshot)
	monitoring.RecordComputation("orderbook", start, err)
	if err != nil {
		s.fail(w, "order book", err)
		return
	}

	ts := snapshot.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	writeJSON(w, http.StatusOK, OrderBookResponse{Symbol: symbol, OrderBookAnalysis: analysis, Timestamp: ts})
}

func (s *Service) handleSignals(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	results, err := s.screener.Signals(r.Context(), limit)
	if err != nil {
		s.fail(w, "signals", err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Service) handleTrends(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	for _, sym := range strings.Split(r.URL.Query().Get("symbols"), ",") {
		if sym = strings.TrimSpace(sym); sym != "" {
			symbols = append(symbols, sym)
		}
	}
	results, err := s.screener.Trends(r.Context(), symbols)
	if err != nil {
		s.fail(w, "trends", err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Service) decodeGridRequest(w http.ResponseWriter, r *http.Request) (GridRequest, bool) {
	var req GridRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return req, false
	}
	if strings.TrimSpace(req.Symbol) == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return req, false
	}
	if req.GridCount == 0 {
		req.GridCount = s.cfg.Grid.DefaultCount
	}
	return req, true
}

func (s *Service) fail(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("operation", op), zap.Error(err))
	} else {
		s.log.Debug("request rejected", zap.String("operation", op), zap.Error(err))
	}
	writeError(w, status, err.Error())
}

// StatusFor maps an error to an HTTP status code
func StatusFor(err error) int {
	if errors.Is(err, screener.ErrPairNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	cat, ok := engerrors.CategoryOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch cat {
	case engerrors.ErrorCategoryInvalidInput, engerrors.ErrorCategoryInvalidGridCount:
		return http.StatusBadRequest
	case engerrors.ErrorCategoryInsufficientData, engerrors.ErrorCategoryEmptyHistory,
		engerrors.ErrorCategoryEmptyBook, engerrors.ErrorCategoryDivisionUndefined,
		engerrors.ErrorCategoryMissingColumns:
		return http.StatusUnprocessableEntity
	case engerrors.ErrorCategoryRateLimit:
		return http.StatusTooManyRequests
	case engerrors.ErrorCategoryExchange, engerrors.ErrorCategoryNetwork, engerrors.ErrorCategoryTemporary:
		return http.StatusBadGateway
	case engerrors.ErrorCategoryTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name+": "+raw)
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
