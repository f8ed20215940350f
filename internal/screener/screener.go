// Package screener evaluates many instruments in parallel and ranks them for grid trading.
package screener

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
	"github.com/ducminhle1904/gridscope/internal/exchange"
	"github.com/ducminhle1904/gridscope/internal/grid"
	"github.com/ducminhle1904/gridscope/internal/indicators"
	"github.com/ducminhle1904/gridscope/internal/monitoring"
	"github.com/ducminhle1904/gridscope/internal/signals"
	"github.com/ducminhle1904/gridscope/pkg/config"
	"github.com/ducminhle1904/gridscope/pkg/types"
)

const component = "screener"

// Config drives every scan
type Config struct {
	QuoteAsset  string
	Concurrency int

	// Top pairs scan
	Interval      string
	KlineLimit    int
	TopN          int
	RecentCandles int
	Indicators    indicators.Settings
	Scoring       signals.Config

	// Grid opportunities
	OpportunityUniverse int
	OpportunityLimit    int

	// Grid pair screener
	PairInterval   string
	PairKlines     int
	PairMinCandles int
	PairUniverse   int
	GridStepPct    float64
	MinGrids       int
	MaxGrids       int
	MinVolatility  float64
	MaxVolatility  float64
	MinVolume      float64
	PairLimit      int

	// Trend scan
	TrendInterval string
	TrendKlines   int
	TrendLimit    int
	Trend         signals.TrendConfig
}

// DefaultConfig scans 4h x 100 candles of the top 20 USDT pairs
func DefaultConfig() Config {
	return Config{
		QuoteAsset:          config.DefaultQuoteAsset,
		Concurrency:         8,
		Interval:            "4h",
		KlineLimit:          100,
		TopN:                20,
		RecentCandles:       30,
		Indicators:          indicators.DefaultSettings(),
		Scoring:             signals.DefaultConfig(),
		OpportunityUniverse: 50,
		OpportunityLimit:    10,
		PairInterval:        "1h",
		PairKlines:          24,
		PairMinCandles:      12,
		PairUniverse:        30,
		GridStepPct:         0.5,
		MinGrids:            5,
		MaxGrids:            20,
		MinVolatility:       0.5,
		MaxVolatility:       5,
		MinVolume:           1_000_000,
		PairLimit:           20,
		TrendInterval:       "1h",
		TrendKlines:         24,
		TrendLimit:          10,
		Trend:               signals.DefaultTrendConfig(),
	}
}

// ConfigFrom maps the application config onto screener settings
func ConfigFrom(cfg *config.Config) Config {
	c := DefaultConfig()
	c.QuoteAsset = strings.ToUpper(cfg.Market.QuoteAsset)
	c.Concurrency = cfg.Market.Concurrency
	c.Interval = cfg.Market.Interval
	c.KlineLimit = cfg.Market.KlineLimit
	c.TopN = cfg.Market.TopN
	c.Indicators = cfg.IndicatorSettings()
	c.Scoring = cfg.ScorerConfig()
	c.OpportunityLimit = cfg.Screener.OpportunityLimit
	c.MinVolatility = cfg.Screener.MinVolatility
	c.MaxVolatility = cfg.Screener.MaxVolatility
	c.MinVolume = cfg.Screener.MinVolume
	c.PairLimit = cfg.Screener.Limit
	c.TrendLimit = cfg.Screener.Limit
	return c
}

// Screener runs scans against a market data source, normally a market.Poller
type Screener struct {
	source exchange.MarketDataSource
	cfg    Config
	scorer *signals.Scorer
	log    *zap.Logger
}

// New creates a screener. log may be nil.
func New(source exchange.MarketDataSource, cfg Config, log *zap.Logger) *Screener {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Screener{
		source: source,
		cfg:    cfg,
		scorer: signals.NewScorer(cfg.Scoring),
		log:    log.With(zap.String("component", component)),
	}
}

// Config returns the active settings
func (s *Screener) Config() Config {
	return s.cfg
}

// Pair returns the exchange symbol for a base asset or symbol, e.g. btc -> BTCUSDT
func (s *Screener) Pair(symbol string) string {
	return NormalizeSymbol(symbol, s.cfg.QuoteAsset)
}

// NormalizeSymbol upper-cases symbol and appends quote unless it is already there
func NormalizeSymbol(symbol, quote string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	quote = strings.ToUpper(quote)
	if quote == "" || strings.HasSuffix(symbol, quote) {
		return symbol
	}
	return symbol + quote
}

// TopByVolume keeps tickers quoted in quote and returns the n largest by 24h quote volume
func TopByVolume(tickers []types.InstrumentSnapshot, quote string, n int) []types.InstrumentSnapshot {
	quote = strings.ToUpper(quote)
	out := make([]types.InstrumentSnapshot, 0, len(tickers))
	for _, t := range tickers {
		if strings.HasSuffix(t.Symbol, quote) && len(t.Symbol) > len(quote) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].QuoteVolume24h > out[j].QuoteVolume24h
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// TopPairs scores the limit most traded pairs. A pair that fails is logged and skipped.
// Results keep the volume order. limit <= 0 uses the configured TopN.
func (s *Screener) TopPairs(ctx context.Context, limit int) ([]types.PairSummary, error) {
	start := time.Now()
	if limit <= 0 {
		limit = s.cfg.TopN
	}

	universe, err := s.universe(ctx, limit)
	if err != nil {
		monitoring.RecordComputation("top_pairs", start, err)
		return nil, err
	}

	results := make([]*types.PairSummary, len(universe))
	err = s.each(ctx, universe, func(i int, t types.InstrumentSnapshot) error {
		summary, err := s.scorePair(ctx, t)
		if err != nil {
			return err
		}
		results[i] = summary
		return nil
	})
	monitoring.RecordComputation("top_pairs", start, err)
	if err != nil {
		return nil, err
	}

	out := make([]types.PairSummary, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	s.log.Info("top pairs scanned", zap.Int("requested", len(universe)), zap.Int("scored", len(out)))
	return out, nil
}

// FindPair scores the top pairs and returns the one matching symbol, which may be given
// with or without the quote asset
func (s *Screener) FindPair(ctx context.Context, symbol string) (*types.PairSummary, error) {
	pairs, err := s.TopPairs(ctx, 0)
	if err != nil {
		return nil, err
	}
	want := s.Pair(symbol)
	for i := range pairs {
		if pairs[i].Pair == want {
			return &pairs[i], nil
		}
	}
	return nil, ErrPairNotFound
}

// ErrPairNotFound is returned by FindPair when the symbol is not among the top pairs
var ErrPairNotFound = errors.New("symbol not found among top pairs")

// GridOpportunities ranks a wider top pairs scan by grid score. Equal scores keep the
// higher volume first.
func (s *Screener) GridOpportunities(ctx context.Context) ([]types.PairSummary, error) {
	pairs, err := s.TopPairs(ctx, s.cfg.OpportunityUniverse)
	if err != nil {
		return nil, err
	}
	RankPairs(pairs)
	if len(pairs) > s.cfg.OpportunityLimit {
		pairs = pairs[:s.cfg.OpportunityLimit]
	}
	return pairs, nil
}

// RankPairs sorts summaries by grid score, then by 24h volume
func RankPairs(pairs []types.PairSummary) {
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].GridScore != pairs[j].GridScore {
			return pairs[i].GridScore > pairs[j].GridScore
		}
		return pairs[i].Volume24h > pairs[j].Volume24h
	})
}

// Signals scores the top pairs and returns their signal results ranked by grid score
func (s *Screener) Signals(ctx context.Context, limit int) ([]types.SignalResult, error) {
	pairs, err := s.TopPairs(ctx, limit)
	if err != nil {
		return nil, err
	}
	volume := make(map[string]float64, len(pairs))
	results := make([]types.SignalResult, len(pairs))
	for i, p := range pairs {
		volume[p.Pair] = p.Volume24h
		results[i] = types.SignalResult{
			Symbol:        p.Pair,
			Signal:        p.Signal,
			GridScore:     p.GridScore,
			VolatilityPct: p.VolatilityPct,
			RSI:           p.RSI,
			Timestamp:     p.Timestamp,
		}
		if n := len(p.Klines); n > 0 {
			last := p.Klines[n-1]
			if last.MACD != nil && last.MACDSignal != nil {
				results[i].MACD = *last.MACD
				results[i].MACDSignal = *last.MACDSignal
			}
		}
	}
	return signals.Rank(results, func(a, b types.SignalResult) bool {
		return volume[a.Symbol] > volume[b.Symbol]
	}), nil
}

// GridPairs screens the most traded pairs by their recent hourly range. Pairs inside the
// volatility band with enough volume are sorted by estimated profit potential.
func (s *Screener) GridPairs(ctx context.Context) ([]types.GridCandidate, error) {
	start := time.Now()
	universe, err := s.universe(ctx, s.cfg.PairUniverse)
	if err != nil {
		monitoring.RecordComputation("grid_pairs", start, err)
		return nil, err
	}

	var mu sync.Mutex
	out := make([]types.GridCandidate, 0, len(universe))
	err = s.each(ctx, universe, func(_ int, t types.InstrumentSnapshot) error {
		candles, err := s.source.Klines(ctx, t.Symbol, s.cfg.PairInterval, s.cfg.PairKlines)
		if err != nil {
			return err
		}
		c, ok, err := s.gridCandidate(t, candles)
		if err != nil || !ok {
			return err
		}
		mu.Lock()
		out = append(out, c)
		mu.Unlock()
		return nil
	})
	monitoring.RecordComputation("grid_pairs", start, err)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProfitPotentialPct != out[j].ProfitPotentialPct {
			return out[i].ProfitPotentialPct > out[j].ProfitPotentialPct
		}
		return out[i].Volume24h > out[j].Volume24h
	})
	if len(out) > s.cfg.PairLimit {
		out = out[:s.cfg.PairLimit]
	}
	return out, nil
}

// EvaluateGridCandidate applies the grid pair criteria to one ticker and its candles.
// ok is false when the pair has too few candles or falls outside the filters.
func (s *Screener) EvaluateGridCandidate(t types.InstrumentSnapshot, candles []types.OHLCV) (types.GridCandidate, bool, error) {
	return s.gridCandidate(t, candles)
}

func (s *Screener) gridCandidate(t types.InstrumentSnapshot, candles []types.OHLCV) (types.GridCandidate, bool, error) {
	if len(candles) < s.cfg.PairMinCandles {
		return types.GridCandidate{}, false, nil
	}
	avgVol, err := indicators.AverageVolatility(candles, 0)
	if err != nil {
		return types.GridCandidate{}, false, err
	}

	lo, hi := candles[0].Low, candles[0].High
	for _, c := range candles[1:] {
		lo = math.Min(lo, c.Low)
		hi = math.Max(hi, c.High)
	}
	// lo > 0 here, AverageVolatility rejects zero lows
	width := (hi - lo) / lo * 100

	if avgVol < s.cfg.MinVolatility || avgVol > s.cfg.MaxVolatility || t.QuoteVolume24h < s.cfg.MinVolume {
		return types.GridCandidate{}, false, nil
	}
	return types.GridCandidate{
		Symbol:              t.Symbol,
		CurrentPrice:        t.LastPrice,
		AvgHourlyVolatility: round2(avgVol),
		Volume24h:           t.QuoteVolume24h,
		RangeLow:            lo,
		RangeHigh:           hi,
		RangeWidthPct:       round2(width),
		SuggestedGrids:      grid.SuggestGridCount(width, s.cfg.GridStepPct, s.cfg.MinGrids, s.cfg.MaxGrids),
		ProfitPotentialPct:  round2(width * 0.8),
	}, true, nil
}

// Trends reads a moving-average crossover for each symbol, or for the most traded pairs
// when symbols is empty, and returns the most confident readings first.
func (s *Screener) Trends(ctx context.Context, symbols []string) ([]types.TrendResult, error) {
	start := time.Now()
	var universe []types.InstrumentSnapshot
	if len(symbols) == 0 {
		var err error
		universe, err = s.universe(ctx, s.cfg.PairUniverse)
		if err != nil {
			monitoring.RecordComputation("trends", start, err)
			return nil, err
		}
	} else {
		for _, sym := range symbols {
			universe = append(universe, types.InstrumentSnapshot{Symbol: s.Pair(sym)})
		}
	}

	var mu sync.Mutex
	out := make([]types.TrendResult, 0, len(universe))
	err := s.each(ctx, universe, func(_ int, t types.InstrumentSnapshot) error {
		candles, err := s.source.Klines(ctx, t.Symbol, s.cfg.TrendInterval, s.cfg.TrendKlines)
		if err != nil {
			return err
		}
		r, err := signals.TrendSignal(t.Symbol, types.Closes(candles), types.Volumes(candles), s.cfg.Trend)
		if err != nil {
			return err
		}
		mu.Lock()
		out = append(out, *r)
		mu.Unlock()
		return nil
	})
	monitoring.RecordComputation("trends", start, err)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	signals.SortByConfidence(out)
	if len(out) > s.cfg.TrendLimit {
		out = out[:s.cfg.TrendLimit]
	}
	return out, nil
}

func (s *Screener) universe(ctx context.Context, n int) ([]types.InstrumentSnapshot, error) {
	tickers, err := s.source.Tickers(ctx)
	if err != nil {
		return nil, engerrors.CategorizeError(err, component, "Tickers")
	}
	return TopByVolume(tickers, s.cfg.QuoteAsset, n), nil
}

// each runs fn for every ticker with bounded concurrency. Per-symbol errors are logged
// and swallowed; context cancellation and errors whose recovery is to stop, such as a
// misconfigured exchange, abort the batch.
func (s *Screener) each(ctx context.Context, universe []types.InstrumentSnapshot, fn func(int, types.InstrumentSnapshot) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, t := range universe {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(i, t); err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				monitoring.RecordError(err)
				action := engerrors.CategorizeError(err, "screener", "each").GetRecoveryAction()
				if action == engerrors.RecoveryActionStop {
					return err
				}
				s.log.Warn("skipping symbol", zap.String("symbol", t.Symbol),
					zap.String("recovery", string(action)), zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Screener) scorePair(ctx context.Context, t types.InstrumentSnapshot) (*types.PairSummary, error) {
	candles, err := s.source.Klines(ctx, t.Symbol, s.cfg.Interval, s.cfg.KlineLimit)
	if err != nil {
		return nil, err
	}
	annotated, err := indicators.Annotate(candles, s.cfg.Indicators)
	if err != nil {
		return nil, err
	}
	result, err := s.scorer.Score(t.Symbol, annotated)
	if err != nil {
		return nil, err
	}
	monitoring.UpdatePrice(t.Symbol, t.LastPrice)

	recent := annotated
	if n := s.cfg.RecentCandles; n > 0 && len(recent) > n {
		recent = recent[len(recent)-n:]
	}
	return &types.PairSummary{
		Symbol:        strings.TrimSuffix(t.Symbol, s.cfg.QuoteAsset),
		Pair:          t.Symbol,
		Price:         t.LastPrice,
		Change24hPct:  t.PriceChangePct24h,
		Volume24h:     t.QuoteVolume24h,
		RSI:           result.RSI,
		Signal:        result.Signal,
		GridScore:     result.GridScore,
		VolatilityPct: result.VolatilityPct,
		Klines:        append([]types.AnnotatedCandle(nil), recent...),
		Timestamp:     result.Timestamp,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
